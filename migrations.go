package account

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const migrationsRoot = "data/sql/migrations"

// goose keeps its configuration in package globals
var gooseMu sync.Mutex

type gooseLogger struct {
	logger Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// MigrationsDir returns the embedded migrations directory for the dialect
func MigrationsDir(name dialect.Name) (dir string, gooseDialect string, err error) {
	switch name {
	case dialect.SQLite:
		return path.Join(migrationsRoot, "sqlite"), "sqlite3", nil
	case dialect.PG:
		return path.Join(migrationsRoot, "postgres"), "postgres", nil
	default:
		return "", "", goerrors.New("unsupported migrations dialect", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"dialect": name.String()})
	}
}

// Migrate applies all pending migrations for the database dialect
func Migrate(ctx context.Context, db *bun.DB, logger Logger) error {
	if logger == nil {
		logger = defaultLogger()
	}

	dir, gd, err := MigrationsDir(db.Dialect().Name())
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(GetMigrationsFS())
	goose.SetLogger(gooseLogger{logger: logger})

	if err := goose.SetDialect(gd); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set migrations dialect")
	}

	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migrations")
	}

	return nil
}
