package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cipher-arena/internal/config"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id VARCHAR(64) PRIMARY KEY,
			external_id VARCHAR(255) NOT NULL UNIQUE,
			handle VARCHAR(50) UNIQUE,
			email VARCHAR(255),
			avatar_url TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS game_sessions (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			current_round VARCHAR(20) NOT NULL DEFAULT 'round_1',
			current_phase VARCHAR(100),
			is_active BOOLEAN DEFAULT TRUE,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			ended_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS player_records (
			id BIGSERIAL PRIMARY KEY,
			player_id VARCHAR(64) NOT NULL REFERENCES players(id),
			session_id VARCHAR(64) NOT NULL REFERENCES game_sessions(id),
			points INT NOT NULL DEFAULT 0 CHECK (points >= 0),
			lifelines JSONB NOT NULL,
			streak INT NOT NULL DEFAULT 0,
			round_1_points INT NOT NULL DEFAULT 0,
			round_2_points INT NOT NULL DEFAULT 0,
			round_3_points INT NOT NULL DEFAULT 0,
			boost_armed BOOLEAN NOT NULL DEFAULT FALSE,
			status VARCHAR(10) NOT NULL DEFAULT 'online',
			last_active_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(player_id, session_id)
		)`,
		`CREATE TABLE IF NOT EXISTS challenges (
			id VARCHAR(64) PRIMARY KEY,
			session_id VARCHAR(64) NOT NULL REFERENCES game_sessions(id),
			title VARCHAR(255) NOT NULL,
			description TEXT,
			round VARCHAR(20) NOT NULL,
			points INT NOT NULL,
			solution VARCHAR(255) NOT NULL,
			hint TEXT,
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS action_log (
			id VARCHAR(64) PRIMARY KEY,
			player_id VARCHAR(64) NOT NULL REFERENCES players(id),
			session_id VARCHAR(64) NOT NULL REFERENCES game_sessions(id),
			kind VARCHAR(30) NOT NULL,
			result VARCHAR(10) NOT NULL,
			target TEXT,
			points_delta INT NOT NULL DEFAULT 0,
			metadata JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS lifeline_usage (
			id VARCHAR(64) PRIMARY KEY,
			player_id VARCHAR(64) NOT NULL REFERENCES players(id),
			session_id VARCHAR(64) NOT NULL REFERENCES game_sessions(id),
			kind VARCHAR(20) NOT NULL,
			target_player_id VARCHAR(64),
			metadata JSONB,
			used_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_player_records_session ON player_records(session_id, points DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_action_log_player ON action_log(player_id, session_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_action_log_completion ON action_log(player_id, target) WHERE kind = 'completed_challenge' AND result = 'success'`,
		`CREATE INDEX IF NOT EXISTS idx_lifeline_usage_player ON lifeline_usage(player_id, session_id, used_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}
