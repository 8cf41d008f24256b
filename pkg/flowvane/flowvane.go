package flowvane

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/flowvane/flowvane/internal/conditions"
	"github.com/flowvane/flowvane/internal/config"
	"github.com/flowvane/flowvane/internal/controllers"
	"github.com/flowvane/flowvane/internal/engine"
	"github.com/flowvane/flowvane/internal/migrations"
	"github.com/flowvane/flowvane/internal/repository"
	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/domain"
	"github.com/flowvane/flowvane/pkg/flowvane/models"

	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/go-sql-driver/mysql"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Options customize the engine the server boots with. All fields are
// optional.
type Options struct {
	// Bus is the cross-module service bus consulted for namespaced
	// action names.
	Bus core.ServiceBus
	// Permissions backs the actor_can built-in condition.
	Permissions conditions.PermissionChecker
	// Configure runs after the engine is constructed, before the HTTP
	// server starts; use it to register conditions, actions and record
	// capabilities.
	Configure func(*engine.Engine)
}

// Start boots the workflow engine and HTTP server. This call blocks
// until the HTTP server stops.
func Start(mux *http.ServeMux, opts Options) error {
	databaseType := config.GetSystemSettingString(config.DATABASE_TYPE)
	if databaseType == "" || (databaseType != config.DATABASE_TYPE_POSTGRES && databaseType != config.DATABASE_TYPE_MYSQL && databaseType != config.DATABASE_TYPE_SQLLITE) {
		panic("FVANE_DATABASE_TYPE must be set to one of the following values: POSTGRES, MYSQL, SQLLITE")
	}

	var db *sql.DB
	if databaseType == config.DATABASE_TYPE_POSTGRES {
		db = setupPostgresDatabase()
		defer db.Close()
	}
	if databaseType == config.DATABASE_TYPE_SQLLITE {
		db = setupSqlLiteDatabase()
		defer db.Close()
	}
	if databaseType == config.DATABASE_TYPE_MYSQL {
		db = setupMysqlDatabase()
		defer db.Close()
	}

	clock := core.NewRealClock()
	definitionRepo := repository.NewDefinitionRepository(db, clock)
	historyRepo := repository.NewHistoryRepository(db, clock)
	instanceRepo := repository.NewInstanceRepository(db, clock, historyRepo)
	actorRepo := repository.NewActorRepository(db, clock)

	eng := engine.NewEngine(definitionRepo, instanceRepo, historyRepo, opts.Bus, opts.Permissions, clock)
	if opts.Configure != nil {
		opts.Configure(eng)
	}

	seedBootstrapActor(actorRepo)
	seedDefinitionsFromDir(eng)

	if mux == nil {
		mux = http.NewServeMux()
	}
	definitionsController := controllers.NewDefinitionsController(eng, actorRepo)
	definitionsController.RegisterRoutes(mux)
	workflowsController := controllers.NewWorkflowsController(eng, actorRepo)
	workflowsController.RegisterRoutes(mux)

	addr := ":" + config.GetSystemSettingString(config.SERVER_WEB_PORT)
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("HTTP server failed", "error", err)
		return err
	}
	return nil
}

// seedBootstrapActor creates the first actor with a generated API key
// when the actors table is empty. The key is logged once; only its
// bcrypt hash is stored.
func seedBootstrapActor(actorRepo *repository.ActorRepository) {
	count, err := actorRepo.CountAll()
	if err != nil {
		slog.Error("Failed to count actors", "error", err)
		return
	}
	if count > 0 {
		return
	}
	name := config.GetSystemSettingString(config.BOOTSTRAP_ACTOR)
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		slog.Error("Failed to generate bootstrap API key", "error", err)
		return
	}
	secret := hex.EncodeToString(buf)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash bootstrap API key", "error", err)
		return
	}
	actor := &domain.Actor{
		Name:    name,
		ApiKey:  sql.NullString{String: string(hash), Valid: true},
		System:  true,
		Enabled: true,
	}
	if _, err := actorRepo.Save(actor); err != nil {
		slog.Error("Failed to seed bootstrap actor", "error", err)
		return
	}
	slog.Info("Seeded bootstrap actor, store this API key now, it will not be shown again",
		"actor", name, "api_key", name+":"+secret)
}

// seedDefinitionsFromDir upserts every YAML workflow schema found in
// FVANE_DEFINITIONS_DIR. The file stem becomes the slug; an
// entity_type key at the top level names the tracked record type.
func seedDefinitionsFromDir(eng *engine.Engine) {
	dir := config.GetSystemSettingString(config.DEFINITIONS_DIR)
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Error("Failed to read definitions dir", "dir", dir, "error", err)
		return
	}
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Error("Failed to read definition file", "path", path, "error", err)
			continue
		}
		var seed struct {
			EntityType string                   `yaml:"entity_type"`
			Owner      string                   `yaml:"owner"`
			Definition models.DefinitionPayload `yaml:",inline"`
		}
		if err := yaml.Unmarshal(raw, &seed); err != nil {
			slog.Error("Failed to parse definition file", "path", path, "error", err)
			continue
		}
		slug := strings.TrimSuffix(entry.Name(), ext)
		if _, err := eng.DefineWorkflow(context.Background(), slug, seed.EntityType, seed.Definition, seed.Owner); err != nil {
			slog.Error("Failed to seed definition", "slug", slug, "error", err)
			continue
		}
		slog.Info("Seeded workflow definition", "slug", slug, "path", path)
	}
}

func setupPostgresDatabase() *sql.DB {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		panic("FVANE_DATABASE_URL must be set when using the POSTGRES database type")
	}
	slog.Info("Using Postgres database", "url", dbURL)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("postgres", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening Postgres database")
	dbPostgres, err := sql.Open("postgres", dbURL)
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbPostgres
}

func setupSqlLiteDatabase() *sql.DB {
	fileName := config.GetSystemSettingString(config.DATABASE_SQLLITE_FILE_NAME)
	if fileName == "" {
		panic("FVANE_DATABASE_SQLLITE_FILE_NAME must be set")
	}
	dbURL := "sqlite3://" + fileName
	slog.Info("Using SQLite database", "file", fileName)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("sqllite3", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening SQLite database")
	dbSqlLite, err := sql.Open("sqlite3", fileName)
	if err != nil {
		log.Fatalf("Failed to open SQLite DB: %v", err)
	}
	if err := dbSqlLite.Ping(); err != nil {
		log.Fatalf("Failed to ping SQLite DB: %v", err)
	}
	return dbSqlLite
}

func setupMysqlDatabase() *sql.DB {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		panic("FVANE_DATABASE_URL must be set when using the MYSQL database type")
	}
	if !strings.Contains(dbURL, "parseTime=true") {
		panic("FVANE_DATABASE_URL must contain 'parseTime=true' for MySQL")
	}
	if !strings.HasPrefix(dbURL, "mysql://") {
		panic("FVANE_DATABASE_URL must start with 'mysql://' for MySQL")
	}

	slog.Info("Using MySQL database", "url", dbURL)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("mysql", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening MySQL database")
	dbMysql, err := sql.Open("mysql", strings.Replace(dbURL, "mysql://", "", 1))
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbMysql
}

func runMigrationsFromEmbed(migrationsPath string, dbURL string) error {
	sub, err := fs.Sub(migrations.FS, migrationsPath)
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func SetupLogger() {
	w := os.Stderr
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}
