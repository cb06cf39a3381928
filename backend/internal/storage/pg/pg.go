package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/Pack144/packman-sub000/shared/config"
	"github.com/Pack144/packman-sub000/shared/logger"
	"github.com/Pack144/packman-sub000/shared/storage/pg"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier = pg.Querier

type Storage struct {
	db  *sql.DB
	now func() time.Time
}

func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	return NewWithPool(ctx, cfg.Private.Pg, pg.DefaultConnectionConfig())
}

func NewWithPool(ctx context.Context, cfg config.Pg, pool pg.ConnectionConfig) (*Storage, error) {
	logger.Log.Info("connecting to db", "host", cfg.Host, "dbname", cfg.Dbname)
	db, err := pg.Connect(ctx, cfg, pool)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("successfully connected to db")
	return &Storage{db: db, now: time.Now}, nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

// Ping backs the readiness probe.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return pg.WithTx(ctx, s.db, fn)
}
