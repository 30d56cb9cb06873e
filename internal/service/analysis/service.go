// Package analysis orchestrates upload processing from extraction through
// classification, persistence, and progress streaming.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
	"github.com/asm0dey/java-version-checker-sub002/internal/ingest"
	"github.com/asm0dey/java-version-checker-sub002/internal/jdk"
	"github.com/asm0dey/java-version-checker-sub002/internal/repository"
	"github.com/asm0dey/java-version-checker-sub002/internal/ws"
)

// ErrUnprocessable marks uploads the pipeline rejected before classification.
var ErrUnprocessable = errors.New("analysis: unprocessable upload")

// Service processes uploaded archives into classified, persisted runs.
type Service struct {
	repo   repository.AnalysisRepository
	hub    *ws.Hub
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewService constructs an analysis Service.
func NewService(repo repository.AnalysisRepository, hub *ws.Hub, logger *slog.Logger) *Service {
	if hub == nil {
		hub = ws.NewHub()
	}
	if logger != nil {
		logger = logger.With("component", "analysis")
	}
	return &Service{
		repo:   repo,
		hub:    hub,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Analyze runs the full pipeline for one upload and returns the finished
// report. The run is recorded before processing starts so subscribers can
// follow progress, and its terminal state is always persisted.
func (s *Service) Analyze(ctx context.Context, fileName string, payload []byte) (*domain.AnalysisReport, error) {
	if s == nil {
		return nil, errors.New("analysis service not initialised")
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		fileName = "upload"
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnprocessable)
	}

	run := &domain.AnalysisRun{
		ID:        s.newID(),
		FileName:  fileName,
		Status:    domain.AnalysisStatusRunning,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateAnalysisRun(ctx, run); err != nil {
		return nil, err
	}
	s.progress(*run, "extracting")

	entries, err := ingest.Extract(fileName, payload)
	if err != nil {
		s.fail(ctx, run, err)
		return nil, fmt.Errorf("%w: %v", ErrUnprocessable, err)
	}

	s.progress(*run, "classifying")
	observations := make([]domain.RuntimeObservation, 0, len(entries))
	for _, entry := range entries {
		if obs := jdk.BuildObservation(entry.Record, entry.Source); obs != nil {
			observations = append(observations, *obs)
		}
	}
	set := jdk.Aggregate(observations)

	s.progress(*run, "persisting")
	if err := s.repo.InsertObservations(ctx, run.ID, set.Observations); err != nil {
		s.fail(ctx, run, err)
		return nil, err
	}

	completed := s.now().UTC()
	run.Status = domain.AnalysisStatusComplete
	run.TotalFiles = set.TotalFiles
	run.DistinctCount = set.DistinctCount
	run.LegacyCount = set.LegacyCount
	run.LicensedCount = set.LicensedCount
	run.CompletedAt = &completed
	update := domain.AnalysisRunUpdate{
		ID:            run.ID,
		Status:        run.Status,
		TotalFiles:    run.TotalFiles,
		DistinctCount: run.DistinctCount,
		LegacyCount:   run.LegacyCount,
		LicensedCount: run.LicensedCount,
		CompletedAt:   completed,
	}
	if err := s.repo.UpdateAnalysisRun(ctx, update); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("analysis complete",
			"run_id", run.ID,
			"file_name", run.FileName,
			"total_files", run.TotalFiles,
			"distinct", run.DistinctCount,
			"legacy", run.LegacyCount,
			"licensed", run.LicensedCount,
		)
	}
	s.broadcastFinal(*run)

	return &domain.AnalysisReport{Run: *run, Observations: set.Observations}, nil
}

// GetRun returns one analysis run.
func (s *Service) GetRun(ctx context.Context, runID string) (*domain.AnalysisRun, error) {
	if s == nil {
		return nil, errors.New("analysis service not initialised")
	}
	return s.repo.GetAnalysisRun(ctx, strings.TrimSpace(runID))
}

// ListRuns returns recent analysis runs.
func (s *Service) ListRuns(ctx context.Context, limit, offset int) ([]domain.AnalysisRun, error) {
	if s == nil {
		return nil, errors.New("analysis service not initialised")
	}
	return s.repo.ListAnalysisRuns(ctx, limit, offset)
}

// Report returns a run together with its distinct observation set.
func (s *Service) Report(ctx context.Context, runID string) (*domain.AnalysisReport, error) {
	if s == nil {
		return nil, errors.New("analysis service not initialised")
	}
	run, err := s.repo.GetAnalysisRun(ctx, strings.TrimSpace(runID))
	if err != nil {
		return nil, err
	}
	observations, err := s.repo.ListObservationsByRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return &domain.AnalysisReport{Run: *run, Observations: observations}, nil
}

// Hub exposes the SSE/WebSocket hub for progress consumers.
func (s *Service) Hub() *ws.Hub {
	if s == nil {
		return nil
	}
	return s.hub
}

func (s *Service) fail(ctx context.Context, run *domain.AnalysisRun, cause error) {
	completed := s.now().UTC()
	run.Status = domain.AnalysisStatusFailed
	run.Error = cause.Error()
	run.CompletedAt = &completed
	update := domain.AnalysisRunUpdate{
		ID:          run.ID,
		Status:      run.Status,
		Error:       run.Error,
		CompletedAt: completed,
	}
	if err := s.repo.UpdateAnalysisRun(ctx, update); err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to record analysis failure", "run_id", run.ID, "error", err)
		}
	}
	if s.logger != nil {
		s.logger.Warn("analysis failed", "run_id", run.ID, "file_name", run.FileName, "error", cause)
	}
	s.broadcastFinal(*run)
}

func (s *Service) progress(run domain.AnalysisRun, stage string) {
	if s.hub == nil {
		return
	}
	payload, err := MarshalRunEvent(run, stage)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to marshal run event", "error", err)
		}
		return
	}
	s.hub.Broadcast(run.ID, payload)
}

func (s *Service) broadcastFinal(run domain.AnalysisRun) {
	if s.hub == nil {
		return
	}
	payload, err := MarshalRunEvent(run, run.Status)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to marshal run event", "error", err)
		}
		return
	}
	s.hub.BroadcastFinal(run.ID, payload)
}

// MarshalRunEvent encodes a run progress event for SSE/WebSocket clients.
func MarshalRunEvent(run domain.AnalysisRun, stage string) ([]byte, error) {
	var completedAt any
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	payload := map[string]any{
		"run_id":         run.ID,
		"stage":          stage,
		"status":         run.Status,
		"file_name":      run.FileName,
		"total_files":    run.TotalFiles,
		"distinct_count": run.DistinctCount,
		"legacy_count":   run.LegacyCount,
		"licensed_count": run.LicensedCount,
		"error":          run.Error,
		"created_at":     run.CreatedAt.UTC().Format(time.RFC3339Nano),
		"completed_at":   completedAt,
	}
	return json.Marshal(payload)
}
