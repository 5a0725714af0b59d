// Package postgres opens the annotation database through lib/pq and runs
// transactional bulk writes.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
)

const connectProbeTimeout = 5 * time.Second

type Client struct {
	db   *sql.DB
	name string
}

// New opens a pool sized by cfg and fails unless the server answers a ping.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	c := &Client{db: db, name: fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)}
	ctx, cancel := context.WithTimeout(context.Background(), connectProbeTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging postgres %s: %w", c.name, err)
	}
	return nil
}

// Query runs a read-only statement on the pool.
func (c *Client) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c *Client) Close() error {
	return c.db.Close()
}

// InTx runs fn in a transaction, committing on nil and rolling back
// otherwise. A failed rollback is joined to the error of fn.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction on %s: %w", c.name, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction on %s: %w", c.name, err)
	}
	return nil
}

// Exec runs each statement in order inside one transaction.
func (c *Client) Exec(ctx context.Context, statements ...string) error {
	return c.InTx(ctx, func(tx *sql.Tx) error {
		for _, s := range statements {
			if _, err := tx.ExecContext(ctx, s); err != nil {
				return fmt.Errorf("executing %.40q: %w", s, err)
			}
		}
		return nil
	})
}

// CopyIn streams n rows into table with COPY FROM STDIN. row(i) returns the
// values of row i in the order of columns.
func CopyIn(ctx context.Context, tx *sql.Tx, table string, columns []string, n int, row func(i int) []any) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("preparing copy into %s: %w", table, err)
	}
	defer stmt.Close()
	for i := range n {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return fmt.Errorf("copying row %d into %s: %w", i, table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flushing copy into %s: %w", table, err)
	}
	return nil
}
