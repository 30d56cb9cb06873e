package analysis

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
	"github.com/asm0dey/java-version-checker-sub002/internal/repository"
	"github.com/asm0dey/java-version-checker-sub002/internal/ws"
)

type analysisRepoStub struct {
	mu        sync.Mutex
	created   []domain.AnalysisRun
	updates   []domain.AnalysisRunUpdate
	inserted  map[string][]domain.RuntimeObservation
	runs      map[string]domain.AnalysisRun
	stored    map[string][]domain.RuntimeObservation
	createErr error
	updateErr error
	insertErr error
}

func newAnalysisRepoStub() *analysisRepoStub {
	return &analysisRepoStub{
		inserted: make(map[string][]domain.RuntimeObservation),
		runs:     make(map[string]domain.AnalysisRun),
		stored:   make(map[string][]domain.RuntimeObservation),
	}
}

func (s *analysisRepoStub) CreateAnalysisRun(_ context.Context, run *domain.AnalysisRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, *run)
	return nil
}

func (s *analysisRepoStub) UpdateAnalysisRun(_ context.Context, update domain.AnalysisRunUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, update)
	return nil
}

func (s *analysisRepoStub) GetAnalysisRun(_ context.Context, runID string) (*domain.AnalysisRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &run, nil
}

func (s *analysisRepoStub) ListAnalysisRuns(_ context.Context, _, _ int) ([]domain.AnalysisRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]domain.AnalysisRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *analysisRepoStub) InsertObservations(_ context.Context, runID string, observations []domain.RuntimeObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted[runID] = observations
	return nil
}

func (s *analysisRepoStub) ListObservationsByRun(_ context.Context, runID string) ([]domain.RuntimeObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored[runID], nil
}

func (s *analysisRepoStub) lastUpdate() (domain.AnalysisRunUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.updates) == 0 {
		return domain.AnalysisRunUpdate{}, false
	}
	return s.updates[len(s.updates)-1], true
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
}

func newTestService(repo *analysisRepoStub, hub *ws.Hub) *Service {
	return &Service{
		repo:  repo,
		hub:   hub,
		now:   fixedNow,
		newID: func() string { return "run-123" },
	}
}

func archivePayload(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

func TestAnalyzeClassifiesAndPersistsDistinctSet(t *testing.T) {
	repo := newAnalysisRepoStub()
	service := newTestService(repo, nil)
	payload := archivePayload(t, map[string]string{
		"hosts/a/release": "JAVA_VERSION=\"11.0.3\"\nIMPLEMENTOR=\"Oracle Corporation\"\nJAVA_RUNTIME_VERSION=\"11.0.3+12\"\n",
		"hosts/b/release": "JAVA_VERSION=\"11.0.3\"\nIMPLEMENTOR=\"Oracle Corporation\"\nJAVA_RUNTIME_VERSION=\"11.0.3+12\"\n",
		"hosts/c/release": "JAVA_VERSION=\"1.8.0_181\"\nIMPLEMENTOR=\"Oracle Corporation\"\n",
	})

	report, err := service.Analyze(context.Background(), "fleet.zip", payload)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if report.Run.ID != "run-123" {
		t.Fatalf("unexpected run id %q", report.Run.ID)
	}
	if report.Run.Status != domain.AnalysisStatusComplete {
		t.Fatalf("unexpected status %q", report.Run.Status)
	}
	if report.Run.TotalFiles != 3 {
		t.Fatalf("expected 3 total files, got %d", report.Run.TotalFiles)
	}
	if report.Run.DistinctCount != 2 {
		t.Fatalf("expected 2 distinct runtimes, got %d", report.Run.DistinctCount)
	}
	if report.Run.LicensedCount != 1 {
		t.Fatalf("expected 1 licensed runtime, got %d", report.Run.LicensedCount)
	}
	if report.Run.LegacyCount != 0 {
		t.Fatalf("expected no legacy runtimes, got %d", report.Run.LegacyCount)
	}
	if report.Run.CompletedAt == nil || !report.Run.CompletedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected completion time %v", report.Run.CompletedAt)
	}
	if len(report.Observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(report.Observations))
	}
	if report.Observations[0].Version != "1.8.0_181" || report.Observations[1].Version != "11.0.3" {
		t.Fatalf("unexpected observation order: %q, %q", report.Observations[0].Version, report.Observations[1].Version)
	}

	if len(repo.created) != 1 || repo.created[0].Status != domain.AnalysisStatusRunning {
		t.Fatalf("expected one running run created, got %+v", repo.created)
	}
	if len(repo.inserted["run-123"]) != 2 {
		t.Fatalf("expected 2 observations inserted, got %d", len(repo.inserted["run-123"]))
	}
	update, ok := repo.lastUpdate()
	if !ok {
		t.Fatal("expected terminal update")
	}
	if update.Status != domain.AnalysisStatusComplete || update.DistinctCount != 2 || update.TotalFiles != 3 {
		t.Fatalf("unexpected terminal update %+v", update)
	}
}

func TestAnalyzeFlatPropertyFile(t *testing.T) {
	repo := newAnalysisRepoStub()
	service := newTestService(repo, nil)

	report, err := service.Analyze(context.Background(), "system.properties", []byte("java.version=1.6.0_45\njava.vendor=Sun Microsystems Inc.\n"))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if report.Run.DistinctCount != 1 || report.Run.LegacyCount != 1 {
		t.Fatalf("unexpected counters %+v", report.Run)
	}
	if report.Observations[0].SourceName != "system.properties" {
		t.Fatalf("unexpected source name %q", report.Observations[0].SourceName)
	}
}

func TestAnalyzeRejectsEmptyPayload(t *testing.T) {
	repo := newAnalysisRepoStub()
	service := newTestService(repo, nil)

	_, err := service.Analyze(context.Background(), "empty.zip", nil)
	if !errors.Is(err, ErrUnprocessable) {
		t.Fatalf("expected ErrUnprocessable, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("no run should be created for empty payloads, got %+v", repo.created)
	}
}

func TestAnalyzeMarksRunFailedOnCorruptArchive(t *testing.T) {
	repo := newAnalysisRepoStub()
	service := newTestService(repo, nil)

	_, err := service.Analyze(context.Background(), "broken.zip", []byte("PK\x03\x04 definitely not a zip"))
	if !errors.Is(err, ErrUnprocessable) {
		t.Fatalf("expected ErrUnprocessable, got %v", err)
	}
	update, ok := repo.lastUpdate()
	if !ok {
		t.Fatal("expected a terminal update for the failed run")
	}
	if update.Status != domain.AnalysisStatusFailed {
		t.Fatalf("unexpected status %q", update.Status)
	}
	if update.Error == "" {
		t.Fatal("expected failure reason on the update")
	}
}

func TestAnalyzeMarksRunFailedWhenPersistenceFails(t *testing.T) {
	repo := newAnalysisRepoStub()
	repo.insertErr = errors.New("connection reset")
	service := newTestService(repo, nil)

	_, err := service.Analyze(context.Background(), "fleet.properties", []byte("java.version=11.0.3\n"))
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if errors.Is(err, ErrUnprocessable) {
		t.Fatalf("internal failures must not be tagged unprocessable: %v", err)
	}
	update, ok := repo.lastUpdate()
	if !ok || update.Status != domain.AnalysisStatusFailed {
		t.Fatalf("expected failed terminal update, got %+v", update)
	}
}

type streamStub struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (s *streamStub) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *streamStub) Close() {}

func (s *streamStub) last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.payloads) == 0 {
		return nil
	}
	return s.payloads[len(s.payloads)-1]
}

func TestAnalyzeBroadcastsTerminalEvent(t *testing.T) {
	repo := newAnalysisRepoStub()
	hub := ws.NewHub()
	service := newTestService(repo, hub)
	subscriber := &streamStub{}
	hub.Register("run-123", subscriber)

	if _, err := service.Analyze(context.Background(), "fleet.properties", []byte("java.version=21.0.5\n")); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var event map[string]any
	for time.Now().Before(deadline) {
		if payload := subscriber.last(); payload != nil {
			if err := json.Unmarshal(payload, &event); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if event["status"] == domain.AnalysisStatusComplete {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	if event["status"] != domain.AnalysisStatusComplete {
		t.Fatalf("expected terminal complete event, got %v", event)
	}
	if event["run_id"] != "run-123" {
		t.Fatalf("unexpected run id in event: %v", event)
	}
	if event["distinct_count"] != float64(1) {
		t.Fatalf("unexpected distinct count in event: %v", event)
	}
}

func TestReportReturnsRunWithObservations(t *testing.T) {
	repo := newAnalysisRepoStub()
	completed := fixedNow()
	repo.runs["run-9"] = domain.AnalysisRun{
		ID:            "run-9",
		FileName:      "fleet.zip",
		Status:        domain.AnalysisStatusComplete,
		TotalFiles:    2,
		DistinctCount: 1,
		CreatedAt:     fixedNow(),
		CompletedAt:   &completed,
	}
	repo.stored["run-9"] = []domain.RuntimeObservation{{Version: "17.0.13", RequiresLicense: true}}
	service := newTestService(repo, nil)

	report, err := service.Report(context.Background(), "run-9")
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if report.Run.ID != "run-9" || len(report.Observations) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	if _, err := service.Report(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing run, got %v", err)
	}
}

func TestMarshalRunEventShape(t *testing.T) {
	completed := fixedNow()
	run := domain.AnalysisRun{
		ID:            "run-5",
		FileName:      "fleet.zip",
		Status:        domain.AnalysisStatusComplete,
		TotalFiles:    4,
		DistinctCount: 3,
		LegacyCount:   1,
		LicensedCount: 2,
		CreatedAt:     fixedNow(),
		CompletedAt:   &completed,
	}
	payload, err := MarshalRunEvent(run, "complete")
	if err != nil {
		t.Fatalf("MarshalRunEvent returned error: %v", err)
	}
	var event map[string]any
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event["stage"] != "complete" || event["run_id"] != "run-5" {
		t.Fatalf("unexpected event %v", event)
	}
	if event["legacy_count"] != float64(1) || event["licensed_count"] != float64(2) {
		t.Fatalf("unexpected counters %v", event)
	}
	if event["completed_at"] == nil {
		t.Fatal("expected completed_at to be set")
	}
}
