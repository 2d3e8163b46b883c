package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

var errNoDB = errors.New("db is required")

// Runner applies goose migrations from either a directory on disk or the
// set embedded in the binary.
type Runner struct {
	provider *goose.Provider
}

// NewRunner builds a postgres runner. An empty dir selects the embedded set.
func NewRunner(db *sql.DB, dir string) (*Runner, error) {
	return newRunner(goose.DialectPostgres, db, dir)
}

func newRunner(dialect goose.Dialect, db *sql.DB, dir string) (*Runner, error) {
	if db == nil {
		return nil, errNoDB
	}
	source, err := sourceFS(dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(dialect, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

func sourceFS(dir string) (fs.FS, error) {
	if dir == "" {
		sub, err := fs.Sub(Embedded, EmbeddedDir)
		if err != nil {
			return nil, fmt.Errorf("embedded migrations: %w", err)
		}
		return sub, nil
	}
	return os.DirFS(dir), nil
}

func (r *Runner) Up(ctx context.Context) ([]*goose.MigrationResult, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return results, fmt.Errorf("goose up: %w", err)
	}
	return results, nil
}

// Down rolls back the most recent migration only.
func (r *Runner) Down(ctx context.Context) (*goose.MigrationResult, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return result, fmt.Errorf("goose down: %w", err)
	}
	return result, nil
}

func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return r.provider.Status(ctx)
}

func (r *Runner) Version(ctx context.Context) (int64, error) {
	return r.provider.GetDBVersion(ctx)
}

// MigrateTo moves the schema up or down until it sits at target, a
// YYYYMMDDHHMMSS version string.
func (r *Runner) MigrateTo(ctx context.Context, target string) ([]*goose.MigrationResult, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || version < 0 {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	current, err := r.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("current version: %w", err)
	}
	switch {
	case current < version:
		return r.provider.UpTo(ctx, version)
	case current > version:
		return r.provider.DownTo(ctx, version)
	default:
		return nil, nil
	}
}
