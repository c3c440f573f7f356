// Package database owns the connection pool and transaction boundaries used by
// the repositories. It carries no business logic.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/metrics"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // registers the pure-Go "sqlite" driver
)

// Dialect selects placeholder style and schema flavour.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Querier is satisfied by both the pool and an open transaction, so
// repository helpers can run either inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Options configures Open.
type Options struct {
	Driver       string // "pgx" or "sqlite"
	URL          string
	MaxOpenConns int
	QueryTimeout time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// Provider hands out the pooled connection and transaction semantics.
// It is built once at process start and passed to every repository.
type Provider struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics
}

// Open connects to the configured store and verifies it with a ping.
func Open(ctx context.Context, opts Options) (*Provider, error) {
	var (
		dialect Dialect
		dsn     = opts.URL
	)
	switch opts.Driver {
	case "pgx":
		dialect = Postgres
	case "sqlite":
		dialect = SQLite
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	if dialect == SQLite {
		// SQLite allows a single writer; one connection keeps transactions serialised.
		db.SetMaxOpenConns(1)
	} else {
		maxOpen := opts.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 10
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, err)
	}

	return New(db, dialect, opts.QueryTimeout, opts.Logger, opts.Metrics), nil
}

// New wraps an existing pool.
func New(db *sql.DB, dialect Dialect, timeout time.Duration, log *slog.Logger, m *metrics.Metrics) *Provider {
	if log == nil {
		log = slog.Default()
	}
	return &Provider{
		db:      db,
		dialect: dialect,
		timeout: timeout,
		log:     log,
		metrics: m,
	}
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Dialect reports the SQL flavour of the underlying store.
func (p *Provider) Dialect() Dialect { return p.dialect }

// DB exposes the pool for tooling and tests.
func (p *Provider) DB() *sql.DB { return p.db }

// Close releases every pooled connection.
func (p *Provider) Close() error { return p.db.Close() }

// PingContext verifies the store is reachable.
func (p *Provider) PingContext(ctx context.Context) error { return p.db.PingContext(ctx) }

// Bound applies the per-operation timeout. Callers must defer the cancel func
// and finish consuming rows before it runs.
func (p *Provider) Bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Provider) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.db.ExecContext(ctx, rebind(p.dialect, query), args...)
}

func (p *Provider) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.db.QueryContext(ctx, rebind(p.dialect, query), args...)
}

func (p *Provider) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, rebind(p.dialect, query), args...)
}

// WithTx runs fn inside a single transaction on a dedicated connection.
// The transaction commits only when fn returns nil; any error, including a
// panic in fn, rolls it back and the connection returns to the pool.
func (p *Provider) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			p.log.Warn("transaction rollback failed", "error", rbErr)
		}
		p.metrics.ObserveTransaction("rollback")
	}()

	if err := fn(&Tx{tx: sqlTx, dialect: p.dialect}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	p.metrics.ObserveTransaction("commit")
	return nil
}

// Tx is an open transaction with dialect-aware placeholders.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, rebind(t.dialect, query), args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, rebind(t.dialect, query), args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, rebind(t.dialect, query), args...)
}
