package repository

import (
	"fmt"
	"time"

	"github.com/flowvane/flowvane/internal/config"
	"github.com/flowvane/flowvane/pkg/flowvane/core"
)

// placeholder returns the correct bind variable for the given index based on DB type.
// Postgres uses $1, $2... while MySQL and SQLite use ?
func placeholder(i int) string {
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	if db == config.DATABASE_TYPE_POSTGRES {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func nowFunc(clock core.Clock) string {
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	switch db {
	case config.DATABASE_TYPE_SQLLITE:
		return fmt.Sprintf("'%s'", clock.Now().UTC().Format("2006-01-02 15:04:05.000"))
	default:
		return fmt.Sprintf("'%s'", clock.Now().UTC().Format("2006-01-02 15:04:05.000000"))
	}
}

// formatDateInDatabase renders a timestamp the way the configured
// database expects it as a bind value.
func formatDateInDatabase(t time.Time) string {
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	switch db {
	case config.DATABASE_TYPE_SQLLITE:
		return t.UTC().Format("2006-01-02 15:04:05.000")
	case config.DATABASE_TYPE_MYSQL:
		return t.UTC().Format("2006-01-02 15:04:05.000000")
	default:
		// PostgreSQL supports RFC3339
		return t.UTC().Format(time.RFC3339Nano)
	}
}

func supportsReturning() bool {
	return config.GetSystemSettingString(config.DATABASE_TYPE) == config.DATABASE_TYPE_POSTGRES
}

// insertIgnorePrefix and insertIgnoreSuffix wrap an INSERT so that a
// unique-key collision is silently dropped instead of erroring. Used by
// find-or-create paths that must survive concurrent first writes.
func insertIgnorePrefix() string {
	if config.GetSystemSettingString(config.DATABASE_TYPE) == config.DATABASE_TYPE_MYSQL {
		return "INSERT IGNORE INTO "
	}
	return "INSERT INTO "
}

func insertIgnoreSuffix(conflictCols string) string {
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	if db == config.DATABASE_TYPE_POSTGRES || db == config.DATABASE_TYPE_SQLLITE {
		return " ON CONFLICT (" + conflictCols + ") DO NOTHING"
	}
	return ""
}
