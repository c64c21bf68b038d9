package llmInteraction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-travelmate/internal/types"
)

var _ LLmInteractionRepository = (*PostgresLlmInteractionRepo)(nil)

type LLmInteractionRepository interface {
	SaveInteraction(ctx context.Context, interaction types.LlmInteraction) error
	ListRecent(ctx context.Context, limit int) ([]types.LlmInteraction, error)
}

// DBTX is satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PostgresLlmInteractionRepo struct {
	logger *slog.Logger
	pgpool DBTX
}

func NewPostgresLlmInteractionRepo(pgpool DBTX, logger *slog.Logger) *PostgresLlmInteractionRepo {
	return &PostgresLlmInteractionRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresLlmInteractionRepo) SaveInteraction(ctx context.Context, interaction types.LlmInteraction) error {
	query := `
        INSERT INTO llm_interactions (
            id, request_id, step, provider, model_used, query_type,
            temperature, prompt_length, response_length, latency_ms, success, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err := r.pgpool.Exec(ctx, query,
		interaction.ID, interaction.RequestID, interaction.Step, interaction.Provider,
		interaction.ModelUsed, string(interaction.QueryType), interaction.Temperature,
		interaction.PromptLength, interaction.ResponseLength, interaction.LatencyMs,
		interaction.Success, interaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save llm interaction: %w", err)
	}
	return nil
}

func (r *PostgresLlmInteractionRepo) ListRecent(ctx context.Context, limit int) ([]types.LlmInteraction, error) {
	query := `
        SELECT id, COALESCE(request_id, ''), step, provider, model_used, query_type,
               temperature, prompt_length, response_length, latency_ms, success, created_at
        FROM llm_interactions
        ORDER BY created_at DESC
        LIMIT $1
    `
	rows, err := r.pgpool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query llm interactions: %w", err)
	}
	defer rows.Close()

	interactions := make([]types.LlmInteraction, 0, limit)
	for rows.Next() {
		var (
			i         types.LlmInteraction
			queryType string
		)
		if err := rows.Scan(
			&i.ID, &i.RequestID, &i.Step, &i.Provider, &i.ModelUsed, &queryType,
			&i.Temperature, &i.PromptLength, &i.ResponseLength, &i.LatencyMs, &i.Success, &i.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan llm interaction: %w", err)
		}
		i.QueryType = types.QueryType(queryType)
		interactions = append(interactions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating llm interactions: %w", err)
	}
	return interactions, nil
}
