// Package postgres provides the shared distance cache store on PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

// queryTimeout bounds every cache read and write.
const queryTimeout = 5 * time.Second

//go:embed schema.sql
var schemaSQL string

// Store persists cache entries in the lane_distance_cache table.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewStore wraps an open pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the cache table and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate lane_distance_cache: %w", err)
	}
	return nil
}

// Get returns the row for the slot, expired or not, or nil when absent.
func (s *Store) Get(ctx context.Context, originHash, destinationHash string, provider domain.ProviderID) (*domain.CacheEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `
		SELECT origin_text, destination_text, practical_miles, shortest_miles,
		       drive_time_hours, toll_cost, route_type, cached_at, expires_at
		FROM lane_distance_cache
		WHERE origin_hash      = $1
		  AND destination_hash = $2
		  AND provider         = $3`

	e := domain.CacheEntry{
		OriginHash:      originHash,
		DestinationHash: destinationHash,
		Provider:        provider,
	}
	var routeType string
	err := s.pool.QueryRow(ctx, q, originHash, destinationHash, string(provider)).Scan(
		&e.OriginText,
		&e.DestinationText,
		&e.PracticalMiles,
		&e.ShortestMiles,
		&e.DriveTimeHours,
		&e.TollCost,
		&routeType,
		&e.CachedAt,
		&e.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query lane_distance_cache: %w", err)
	}

	e.RouteType = domain.RouteType(routeType)
	e.CachedAt = e.CachedAt.UTC()
	e.ExpiresAt = e.ExpiresAt.UTC()
	return &e, nil
}

// Upsert inserts the entry or replaces the existing row for its identity in
// a single statement.
func (s *Store) Upsert(ctx context.Context, e domain.CacheEntry) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `
		INSERT INTO lane_distance_cache
			(origin_hash, destination_hash, provider, origin_text, destination_text,
			 practical_miles, shortest_miles, drive_time_hours, toll_cost, route_type,
			 cached_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (origin_hash, destination_hash, provider)
		DO UPDATE SET
			origin_text      = EXCLUDED.origin_text,
			destination_text = EXCLUDED.destination_text,
			practical_miles  = EXCLUDED.practical_miles,
			shortest_miles   = EXCLUDED.shortest_miles,
			drive_time_hours = EXCLUDED.drive_time_hours,
			toll_cost        = EXCLUDED.toll_cost,
			route_type       = EXCLUDED.route_type,
			cached_at        = EXCLUDED.cached_at,
			expires_at       = EXCLUDED.expires_at`

	_, err := s.pool.Exec(ctx, q,
		e.OriginHash,
		e.DestinationHash,
		string(e.Provider),
		e.OriginText,
		e.DestinationText,
		e.PracticalMiles,
		e.ShortestMiles,
		e.DriveTimeHours,
		e.TollCost,
		string(e.RouteType),
		e.CachedAt,
		e.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert lane_distance_cache: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
