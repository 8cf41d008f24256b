package config

import (
	"os"
	"strconv"
)

const DATABASE_TYPE = "FVANE_DATABASE_TYPE"
const DATABASE_URL = "FVANE_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "FVANE_DATABASE_SQLLITE_FILE_NAME"
const SERVER_WEB_PORT = "FVANE_SERVER_WEB_PORT"
const DEFINITIONS_DIR = "FVANE_DEFINITIONS_DIR" //yaml workflow schemas loaded at startup
const EVENT_BUFFER_SIZE = "FVANE_EVENT_BUFFER_SIZE"
const BOOTSTRAP_ACTOR = "FVANE_BOOTSTRAP_ACTOR" //name of the actor seeded on first boot

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"

func GetSystemSettingInteger(settingKey string) int {
	val := GetSystemSettingString(settingKey)
	if val != "" {
		intValue, _ := strconv.Atoi(val)
		return intValue
	}
	return 0
}

func GetSystemSettingString(settingKey string) string {
	val := os.Getenv(settingKey)
	if val != "" {
		return val
	}
	if settingKey == SERVER_WEB_PORT {
		return "8080"
	}
	if settingKey == EVENT_BUFFER_SIZE {
		return "256"
	}
	if settingKey == BOOTSTRAP_ACTOR {
		return "system"
	}
	if settingKey == DATABASE_SQLLITE_FILE_NAME {
		return "./flowvane.db"
	}
	return ""
}
