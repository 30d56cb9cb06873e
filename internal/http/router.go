package httpx

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asm0dey/java-version-checker-sub002/internal/catalog"
	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
	"github.com/asm0dey/java-version-checker-sub002/internal/report"
	"github.com/asm0dey/java-version-checker-sub002/internal/repository"
	"github.com/asm0dey/java-version-checker-sub002/internal/service/analysis"
	"github.com/asm0dey/java-version-checker-sub002/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	analysis       *analysis.Service
	catalog        *catalog.Catalog
	reports        *report.Renderer
	upgrader       websocket.Upgrader
	limiter        RateLimiter
	uploadMaxBytes int64
	catalogMaxAge  int
	dbHealth       func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	analysisRuns       *prometheus.CounterVec
	licenseDecisions   *prometheus.CounterVec
}

const (
	rateWindowDefault    = time.Minute
	rateWindowRealtime   = 30 * time.Second
	rateLimitUpload      = 10
	rateLimitRead        = 120
	rateLimitStream      = 30
	healthCheckTimeout   = 2 * time.Second
	sseHeartbeatInterval = 15 * time.Second

	defaultUploadMaxBytes = int64(64 << 20)
	defaultCatalogMaxAge  = 3600
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, analysisSvc *analysis.Service, versionCatalog *catalog.Catalog, reports *report.Renderer, limiter RateLimiter, uploadMaxBytes int64, catalogMaxAge int, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		analysis: analysisSvc,
		catalog:  versionCatalog,
		reports:  reports,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:        limiter,
		uploadMaxBytes: uploadMaxBytes,
		catalogMaxAge:  catalogMaxAge,
		dbHealth:       dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.uploadMaxBytes <= 0 {
		r.uploadMaxBytes = defaultUploadMaxBytes
	}
	if r.catalogMaxAge <= 0 {
		r.catalogMaxAge = defaultCatalogMaxAge
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.HandleFunc("/metrics", promhttp.Handler().ServeHTTP)
	r.mux.HandleFunc("/analyses", r.audit("/analyses", r.handleAnalyses))
	r.mux.HandleFunc("/analyses/", r.audit("/analyses/:id", r.handleAnalysisSubroutes))
	r.mux.HandleFunc("/catalog/versions", r.audit("/catalog/versions", r.withRateLimit("/catalog/versions", rateLimitRead, rateWindowDefault, rateLimitKeyIP, r.handleCatalogVersions)))
	r.mux.HandleFunc("/ws/analyses", r.audit("/ws/analyses", r.withRateLimit("/ws/analyses", rateLimitStream, rateWindowRealtime, rateLimitKeyIP, r.handleAnalysesWS)))
}

func (r *Router) handleAnalyses(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost:
		r.withRateLimit("/analyses", rateLimitUpload, rateWindowDefault, rateLimitKeyIP, r.handleAnalysisCreate)(w, req)
	case http.MethodGet:
		r.withRateLimit("/analyses", rateLimitRead, rateWindowDefault, rateLimitKeyIP, r.handleAnalysisList)(w, req)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleAnalysisCreate(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, r.uploadMaxBytes)

	fileName := strings.TrimSpace(req.URL.Query().Get("file_name"))
	var payload []byte
	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := req.FormFile("file")
		if err != nil {
			if tooLarge(w, err) {
				return
			}
			writeError(w, http.StatusBadRequest, "multipart field \"file\" required")
			return
		}
		defer file.Close()
		payload, err = io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read upload")
			return
		}
		if fileName == "" {
			fileName = header.Filename
		}
	} else {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			if tooLarge(w, err) {
				return
			}
			writeError(w, http.StatusBadRequest, "could not read body")
			return
		}
		payload = body
	}

	result, err := r.analysis.Analyze(req.Context(), fileName, payload)
	if err != nil {
		r.recordAnalysisRun(domain.AnalysisStatusFailed)
		if errors.Is(err, analysis.ErrUnprocessable) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	r.recordAnalysisRun(result.Run.Status)
	r.recordLicenseDecisions(result.Observations)
	writeJSON(w, http.StatusCreated, marshalAnalysisReport(*result))
}

// tooLarge writes a 413 when err is the body size cap tripping.
func tooLarge(w http.ResponseWriter, err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", maxErr.Limit))
		return true
	}
	return false
}

func (r *Router) handleAnalysisList(w http.ResponseWriter, req *http.Request) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))
	runs, err := r.analysis.ListRuns(req.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		payload = append(payload, marshalAnalysisRun(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  payload,
		"count": len(payload),
	})
}

func (r *Router) handleAnalysisSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/analyses/")
	parts := strings.Split(trimmed, "/")
	runID := strings.TrimSpace(parts[0])
	if runID == "" {
		r.notFound(w)
		return
	}
	if len(parts) == 1 {
		r.withRateLimit("/analyses/:id", rateLimitRead, rateWindowDefault, rateLimitKeyIP, func(w http.ResponseWriter, req *http.Request) {
			r.handleAnalysisDetail(w, req, runID)
		})(w, req)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "report":
			r.withRateLimit("/analyses/:id/report", rateLimitRead, rateWindowDefault, rateLimitKeyIP, func(w http.ResponseWriter, req *http.Request) {
				r.handleAnalysisReport(w, req, runID)
			})(w, req)
			return
		case "events":
			r.withRateLimit("/analyses/:id/events", rateLimitStream, rateWindowRealtime, rateLimitKeyIP, func(w http.ResponseWriter, req *http.Request) {
				r.handleAnalysisEvents(w, req, runID)
			})(w, req)
			return
		}
	}
	r.notFound(w)
}

func (r *Router) handleAnalysisDetail(w http.ResponseWriter, req *http.Request, runID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	result, err := r.analysis.Report(req.Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.notFound(w)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, marshalAnalysisReport(*result))
}

func (r *Router) handleAnalysisReport(w http.ResponseWriter, req *http.Request, runID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	result, err := r.analysis.Report(req.Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.notFound(w)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if r.reports == nil {
		writeError(w, http.StatusInternalServerError, "report renderer unavailable")
		return
	}
	var buf bytes.Buffer
	if err := r.reports.Render(&buf, *result); err != nil {
		r.logger.Error("report rendering failed", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not render report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (r *Router) handleAnalysisEvents(w http.ResponseWriter, req *http.Request, runID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	run, err := r.analysis.GetRun(req.Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.notFound(w)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	hub := r.analysis.Hub()
	if hub == nil {
		writeError(w, http.StatusInternalServerError, "analysis stream unavailable")
		return
	}

	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	client := ws.NewSSEClient(w, flusher, r.logger)
	hub.Register(run.ID, client)
	defer func() {
		hub.Unregister(run.ID, client)
		client.Close()
	}()

	if payload, err := analysis.MarshalRunEvent(*run, run.Status); err == nil {
		if err := client.Send(payload); err != nil {
			return
		}
	}
	if err := client.Heartbeat(); err != nil {
		return
	}

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func (r *Router) handleAnalysesWS(w http.ResponseWriter, req *http.Request) {
	runID := strings.TrimSpace(req.URL.Query().Get("run_id"))
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id query parameter required")
		return
	}
	hub := r.analysis.Hub()
	if hub == nil {
		writeError(w, http.StatusInternalServerError, "analysis stream unavailable")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	hub.Register(runID, client)
	go func() {
		defer func() {
			hub.Unregister(runID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleCatalogVersions(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	versions := r.catalog.All()
	if versions == nil {
		writeError(w, http.StatusInternalServerError, "version catalog unavailable")
		return
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", r.catalogMaxAge))
	writeJSON(w, http.StatusOK, map[string]any{
		"versions": versions,
		"count":    len(versions),
	})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	if r.catalog != nil {
		if err := r.catalog.Load(); err != nil {
			status = "degraded"
			components["catalog"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["catalog"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := sr.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

func marshalAnalysisRun(run domain.AnalysisRun) map[string]any {
	var completedAt any
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	return map[string]any{
		"id":             run.ID,
		"file_name":      run.FileName,
		"status":         run.Status,
		"total_files":    run.TotalFiles,
		"distinct_count": run.DistinctCount,
		"legacy_count":   run.LegacyCount,
		"licensed_count": run.LicensedCount,
		"error":          run.Error,
		"created_at":     run.CreatedAt.UTC().Format(time.RFC3339Nano),
		"completed_at":   completedAt,
	}
}

func marshalObservations(observations []domain.RuntimeObservation) []map[string]any {
	out := make([]map[string]any, 0, len(observations))
	for _, obs := range observations {
		out = append(out, map[string]any{
			"version":             obs.Version,
			"runtime_version":     obs.RuntimeVersion,
			"vm_version":          obs.VMVersion,
			"vendor":              obs.Vendor,
			"vm_vendor":           obs.VMVendor,
			"source_name":         obs.SourceName,
			"is_legacy":           obs.IsLegacyTier,
			"requires_license":    obs.RequiresLicense,
			"license_rule":        obs.LicenseRule,
			"license_explanation": obs.LicenseExplanation,
			"age_tier":            obs.AgeTier,
		})
	}
	return out
}

func marshalAnalysisReport(result domain.AnalysisReport) map[string]any {
	payload := marshalAnalysisRun(result.Run)
	payload["observations"] = marshalObservations(result.Observations)
	return payload
}
