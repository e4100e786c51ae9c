package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"astres/internal/adapters/http/perf"
)

// PgxDB is the database interface used by all PostgreSQL stores.
// *pgxpool.Pool satisfies it.
type PgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ PgxDB = (*pgxpool.Pool)(nil)

// OpenPostgres connects a pgx pool whose queries are timed like TimedDB.
// PRE: dsn is a postgres:// URL
// POST: Returns a pinged pool; caller must Close it
func OpenPostgres(ctx context.Context, dsn string, collector *perf.Collector) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.ConnConfig.Tracer = &queryTracer{collector: collector, threshold: slowQueryThreshold()}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

type queryStartKey struct{}

type queryStart struct {
	op    string
	start time.Time
}

// queryTracer implements pgx.QueryTracer.
type queryTracer struct {
	collector *perf.Collector
	threshold float64
}

func (q *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{op: queryLabel(data.SQL), start: time.Now()})
}

func (q *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qs, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	recordQuery(q.collector, q.threshold, qs.op, qs.start, data.Err)
}
