package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides typed access to the census API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:4000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// AnalysisRun reflects API run payloads.
type AnalysisRun struct {
	ID            string     `json:"id"`
	FileName      string     `json:"file_name"`
	Status        string     `json:"status"`
	TotalFiles    int        `json:"total_files"`
	DistinctCount int        `json:"distinct_count"`
	LegacyCount   int        `json:"legacy_count"`
	LicensedCount int        `json:"licensed_count"`
	Error         string     `json:"error"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// Observation is one classified Java runtime in a run's distinct set.
type Observation struct {
	Version            string `json:"version"`
	RuntimeVersion     string `json:"runtime_version"`
	VMVersion          string `json:"vm_version"`
	Vendor             string `json:"vendor"`
	VMVendor           string `json:"vm_vendor"`
	SourceName         string `json:"source_name"`
	IsLegacy           bool   `json:"is_legacy"`
	RequiresLicense    bool   `json:"requires_license"`
	LicenseRule        string `json:"license_rule"`
	LicenseExplanation string `json:"license_explanation"`
	AgeTier            string `json:"age_tier"`
}

// AnalysisReport couples a run with its distinct observation set.
type AnalysisReport struct {
	AnalysisRun
	Observations []Observation `json:"observations"`
}

// Analyze uploads a payload for classification and returns the finished
// report. fileName is advisory and only used for labelling the run.
func (c *Client) Analyze(ctx context.Context, fileName string, payload []byte) (AnalysisReport, error) {
	path := "/analyses"
	if trimmed := strings.TrimSpace(fileName); trimmed != "" {
		path += "?file_name=" + url.QueryEscape(trimmed)
	}
	var report AnalysisReport
	if err := c.do(ctx, http.MethodPost, path, "application/octet-stream", bytes.NewReader(payload), &report); err != nil {
		return AnalysisReport{}, err
	}
	return report, nil
}

// ListRuns fetches recent analysis runs.
func (c *Client) ListRuns(ctx context.Context, limit, offset int) ([]AnalysisRun, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	if offset > 0 {
		query.Set("offset", fmt.Sprintf("%d", offset))
	}
	path := "/analyses"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp struct {
		Runs  []AnalysisRun `json:"runs"`
		Count int           `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// GetReport fetches one run together with its distinct observations.
func (c *Client) GetReport(ctx context.Context, runID string) (AnalysisReport, error) {
	path := fmt.Sprintf("/analyses/%s", url.PathEscape(strings.TrimSpace(runID)))
	var report AnalysisReport
	if err := c.do(ctx, http.MethodGet, path, "", nil, &report); err != nil {
		return AnalysisReport{}, err
	}
	return report, nil
}

// CatalogVersions returns the packaged reference list of Java version
// identifiers.
func (c *Client) CatalogVersions(ctx context.Context) ([]string, error) {
	var resp struct {
		Versions []string `json:"versions"`
		Count    int      `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/catalog/versions", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Versions, nil
}
