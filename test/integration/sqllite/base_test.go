package sqllite

import (
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/flowvane/flowvane/internal/migrations"
	"github.com/flowvane/flowvane/internal/repository"
	"github.com/flowvane/flowvane/test/integration"
)

var fileSeq int32 = 0

// runTestWithSetup gives the test a fresh sqlite database with the full
// schema applied and the repository layer wired on top.
func runTestWithSetup(t *testing.T, testFunc func(t *testing.T, env *testEnv)) {
	filename := fmt.Sprintf("flowvane-test-%d.db", atomic.AddInt32(&fileSeq, 1))
	defer os.Remove(filename)

	os.Setenv("FVANE_DATABASE_TYPE", "SQLLITE")
	os.Setenv("FVANE_DATABASE_SQLLITE_FILE_NAME", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	schema, err := migrations.FS.ReadFile("sqllite3/000001_init.up.sql")
	if err != nil {
		t.Fatalf("Failed to read embedded schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	clock := integration.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	history := repository.NewHistoryRepository(db, clock)
	env := &testEnv{
		db:          db,
		clock:       clock,
		definitions: repository.NewDefinitionRepository(db, clock),
		instances:   repository.NewInstanceRepository(db, clock, history),
		history:     history,
		actors:      repository.NewActorRepository(db, clock),
	}
	testFunc(t, env)
}

type testEnv struct {
	db          *sql.DB
	clock       *integration.FakeClock
	definitions *repository.DefinitionRepository
	instances   *repository.InstanceRepository
	history     *repository.HistoryRepository
	actors      *repository.ActorRepository
}
