package repository

import (
	"context"

	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
)

// AnalysisRepository persists analysis runs and their classified observations.
type AnalysisRepository interface {
	CreateAnalysisRun(ctx context.Context, run *domain.AnalysisRun) error
	UpdateAnalysisRun(ctx context.Context, update domain.AnalysisRunUpdate) error
	GetAnalysisRun(ctx context.Context, runID string) (*domain.AnalysisRun, error)
	ListAnalysisRuns(ctx context.Context, limit, offset int) ([]domain.AnalysisRun, error)
	InsertObservations(ctx context.Context, runID string, observations []domain.RuntimeObservation) error
	ListObservationsByRun(ctx context.Context, runID string) ([]domain.RuntimeObservation, error)
}
