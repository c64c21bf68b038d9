package llmInteraction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travelmate/internal/types"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Recorder receives the metadata of every completion call. Record never
// fails the caller; persistence errors are logged.
type Recorder interface {
	Record(ctx context.Context, interaction types.LlmInteraction)
}

var _ LlmInteractionService = (*LlmInteractionServiceImpl)(nil)

type LlmInteractionService interface {
	Recorder
	ListRecent(ctx context.Context, limit int) ([]types.LlmInteraction, error)
}

type LlmInteractionServiceImpl struct {
	logger *slog.Logger
	repo   LLmInteractionRepository
}

func NewLlmInteractionService(repo LLmInteractionRepository, logger *slog.Logger) *LlmInteractionServiceImpl {
	return &LlmInteractionServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *LlmInteractionServiceImpl) Record(ctx context.Context, interaction types.LlmInteraction) {
	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.SaveInteraction(ctx, interaction); err != nil {
		s.logger.WarnContext(ctx, "Failed to record llm interaction",
			slog.String("step", interaction.Step),
			slog.Any("error", err))
	}
}

// ListRecent clamps limit to [1, MaxListLimit], using DefaultListLimit for
// non-positive values.
func (s *LlmInteractionServiceImpl) ListRecent(ctx context.Context, limit int) ([]types.LlmInteraction, error) {
	ctx, span := otel.Tracer("LlmInteractionService").Start(ctx, "ListRecent", trace.WithAttributes(
		attribute.Int("limit", limit),
	))
	defer span.End()

	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	interactions, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "listed")
	return interactions, nil
}
