package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/competeiq/tripartite/usage"
)

// PostgresRecorder implements usage.Recorder on PostgreSQL.
type PostgresRecorder struct {
	db *sql.DB
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DefaultPostgresConfig returns default PostgreSQL configuration
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "tripartite",
		SSLMode:  "disable",
	}
}

// NewPostgresRecorder connects and ensures the usage table exists.
func NewPostgresRecorder(config *PostgresConfig) (*PostgresRecorder, error) {
	if config == nil {
		config = DefaultPostgresConfig()
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	rec := &PostgresRecorder{db: db}
	if err := rec.createTable(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return rec, nil
}

func (r *PostgresRecorder) createTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS ai_usage (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		function_name TEXT NOT NULL,
		agent_type TEXT NOT NULL,
		model TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		credits_consumed INTEGER NOT NULL,
		cost_usd DOUBLE PRECISION NOT NULL,
		validation_score INTEGER NOT NULL,
		regenerated BOOLEAN NOT NULL,
		has_web_data BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ai_usage_user ON ai_usage(user_id, created_at);
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// Record implements usage.Recorder.
func (r *PostgresRecorder) Record(ctx context.Context, rec usage.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ai_usage (
			user_id, function_name, agent_type, model,
			input_tokens, output_tokens, credits_consumed, cost_usd,
			validation_score, regenerated, has_web_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.UserID, rec.FunctionName, rec.AgentType, rec.Model,
		rec.InputTokens, rec.OutputTokens, rec.CreditsConsumed, rec.CostUSD,
		rec.ValidationScore, rec.Regenerated, rec.HasWebData, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}
