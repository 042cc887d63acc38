package observation

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tattva/tattva/internal/config"
	"github.com/tattva/tattva/internal/pkg/errors"
	"github.com/tattva/tattva/internal/pkg/logger"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Store reads and writes sightings in a relational database.
type Store struct {
	db         *sql.DB
	driver     string
	covariates []string
	log        *logger.Logger
}

// Open connects to the configured database and verifies it is reachable.
func Open(ctx context.Context, cfg config.DatabaseConfig, covariates []string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.DataAccessError("failed to open database", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s, err := New(db, cfg.Driver, covariates, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.log.Info("Connected to observation store", "driver", cfg.Driver, "covariates", covariates)
	return s, nil
}

// New wraps an existing database handle. Covariate names are spliced into SQL
// so each must be a plain lower-case identifier.
func New(db *sql.DB, driver string, covariates []string, log *logger.Logger) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, errors.ValidationError(fmt.Sprintf("unsupported database driver %q", driver))
	}
	if len(covariates) == 0 {
		return nil, errors.ValidationError("at least one covariate is required")
	}
	for _, c := range covariates {
		if !config.IsIdentifier(c) {
			return nil, errors.ValidationError(fmt.Sprintf("invalid covariate column name %q", c))
		}
	}
	if log == nil {
		log = logger.Default()
	}

	return &Store{
		db:         db,
		driver:     driver,
		covariates: append([]string(nil), covariates...),
		log:        log.WithComponent("observation"),
	}, nil
}

// Covariates returns the configured covariate columns in order.
func (s *Store) Covariates() []string {
	return append([]string(nil), s.covariates...)
}

// Driver returns the database/sql driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.DataAccessError("observation store unreachable", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind converts ? placeholders into the driver's native form.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *Store) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}
