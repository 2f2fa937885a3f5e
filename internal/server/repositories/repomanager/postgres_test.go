package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
)

func TestVendsRepositories(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	m := NewPostgresRepositoryManager()
	if m.Users(db) == nil {
		t.Error("Users returned nil")
	}
	if m.RefreshTokens(db) == nil {
		t.Error("RefreshTokens returned nil")
	}
	if m.Nodes(db) == nil {
		t.Error("Nodes returned nil")
	}
}

func TestRunMigrationsUsesSeam(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	called := false
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		return nil
	}

	m := NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
	if !called {
		t.Error("goose.UpContext was not invoked")
	}
}

func TestRunMigrationsPropagatesError(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	boom := errors.New("boom")
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return boom
	}

	m := NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
}
