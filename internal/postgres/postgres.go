package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/reportloop/reportloop/internal/config"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
)

// IClient is the narrow database surface the repositories depend on
type IClient interface {
	DB() *sqlx.DB
	Close() error
}

type client struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewClient connects to postgres and verifies the connection
func NewClient(cfg *config.Configuration, logger *logger.Logger) (IClient, error) {
	db, err := sqlx.Connect("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to postgres").
			Mark(ierr.ErrDatabase)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpen)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdle)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Postgres did not answer ping").
			Mark(ierr.ErrDatabase)
	}

	logger.Infow("connected to postgres",
		"host", cfg.Postgres.Host,
		"database", cfg.Postgres.DBName,
	)

	return &client{db: db, logger: logger}, nil
}

func (c *client) DB() *sqlx.DB {
	return c.db
}

func (c *client) Close() error {
	return c.db.Close()
}
