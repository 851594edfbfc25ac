// Package postgres provides a PostgreSQL implementation of
// storage.IdentityStore. It uses pgx/v5 for connection pooling and keeps
// throttle increments atomic with a single upsert-increment statement.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardenauth/warden/pkg/api"
	"github.com/wardenauth/warden/pkg/storage"
)

// Store is a PostgreSQL-backed IdentityStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.IdentityStore at compile time.
var _ storage.IdentityStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// FindProfileByUsername returns the profile for the given username.
func (s *Store) FindProfileByUsername(ctx context.Context, username string) (*api.Profile, error) {
	return s.scanProfile(s.pool.QueryRow(ctx, `
		SELECT username, distinguished_name, roles, credential, created_by, created_at, updated_at
		FROM user_profiles
		WHERE username = $1
	`, username))
}

// FindProfileByKey resolves the key's owner in a single join. A key whose
// owning profile was deleted yields ErrNotFound.
func (s *Store) FindProfileByKey(ctx context.Context, token string) (*api.Profile, error) {
	return s.scanProfile(s.pool.QueryRow(ctx, `
		SELECT p.username, p.distinguished_name, p.roles, p.credential, p.created_by, p.created_at, p.updated_at
		FROM user_profiles p
		JOIN api_keys k ON k.username = p.username
		WHERE k.token = $1
	`, token))
}

func (s *Store) scanProfile(row pgx.Row) (*api.Profile, error) {
	var p api.Profile
	err := row.Scan(&p.Username, &p.DistinguishedName, &p.Roles, &p.Credential,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return &p, nil
}

// InsertProfile creates a profile. The primary key makes this an atomic
// insert-if-absent; a unique violation maps to ErrConflict.
func (s *Store) InsertProfile(ctx context.Context, profile *api.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_profiles (username, distinguished_name, roles, credential, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, profile.Username, profile.DistinguishedName, profile.Roles, profile.Credential,
		profile.CreatedBy, profile.CreatedAt, profile.UpdatedAt)

	if isDuplicateKey(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}
	return nil
}

// UpdateProfile replaces the stored profile for profile.Username.
func (s *Store) UpdateProfile(ctx context.Context, profile *api.Profile) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE user_profiles
		SET distinguished_name = $2, roles = $3, credential = $4, updated_at = $5
		WHERE username = $1
	`, profile.Username, profile.DistinguishedName, profile.Roles, profile.Credential, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteProfile removes the profile row. Key mappings are left in place.
func (s *Store) DeleteProfile(ctx context.Context, username string) error {
	result, err := s.pool.Exec(ctx,
		"DELETE FROM user_profiles WHERE username = $1", username)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpsertKey binds token to username, replacing any previous token.
func (s *Store) UpsertKey(ctx context.Context, username, token string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (username, token) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET token = EXCLUDED.token
	`, username, token)
	if err != nil {
		return fmt.Errorf("upserting key: %w", err)
	}
	return nil
}

// KeyByUsername returns the live token for username.
func (s *Store) KeyByUsername(ctx context.Context, username string) (string, error) {
	var token string
	err := s.pool.QueryRow(ctx,
		"SELECT token FROM api_keys WHERE username = $1", username).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying key: %w", err)
	}
	return token, nil
}

// UsernameByKey returns the owner of token.
func (s *Store) UsernameByKey(ctx context.Context, token string) (string, error) {
	var username string
	err := s.pool.QueryRow(ctx,
		"SELECT username FROM api_keys WHERE token = $1", token).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying key owner: %w", err)
	}
	return username, nil
}

// DeleteKey removes the mapping for token. Deleting a missing token is a no-op.
func (s *Store) DeleteKey(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx,
		"DELETE FROM api_keys WHERE token = $1", token); err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}
	return nil
}

// ThrottleCount returns the count for username and category, zero when absent.
func (s *Store) ThrottleCount(ctx context.Context, username, category string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT invocations FROM user_throttles
		WHERE username = $1 AND category = $2
	`, username, category).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying throttle: %w", err)
	}
	return count, nil
}

// IncrementThrottle adds one to the count in a single upsert-increment
// round trip. Concurrent callers for the same user and category serialize
// on the row, so N calls durably yield a count of N.
func (s *Store) IncrementThrottle(ctx context.Context, username, category string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_throttles (username, category, invocations)
		VALUES ($1, $2, 1)
		ON CONFLICT (username, category)
		DO UPDATE SET invocations = user_throttles.invocations + 1
	`, username, category)
	if err != nil {
		return fmt.Errorf("incrementing throttle: %w", err)
	}
	return nil
}

// ClearThrottles resets all throttle counters.
func (s *Store) ClearThrottles(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM user_throttles"); err != nil {
		return fmt.Errorf("clearing throttles: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
