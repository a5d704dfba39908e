// Package report requests an inventory analysis from an external report
// service. The service is a black box: it receives the current items, logs
// and users and answers with a structured Report.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
)

// ErrReportGenerationFailed wraps every failure to obtain a report. Callers
// show it inline in the report view; it never affects the rest of the client.
var ErrReportGenerationFailed = errors.New("report generation failed")

// Input is the data the report is computed from.
type Input struct {
	Items []api.Item     `json:"items"`
	Logs  []api.LogEntry `json:"logs"`
	Users []api.User     `json:"users"`
}

// LowStock flags an item whose availability is running out.
type LowStock struct {
	ItemName  string `json:"itemName"`
	Available int    `json:"availableQuantity"`
	Total     int    `json:"totalQuantity"`
}

// TopBorrowed ranks an item by borrow activity.
type TopBorrowed struct {
	ItemName    string `json:"itemName"`
	BorrowCount int    `json:"borrowCount"`
}

// Report is the structured analysis returned by the service.
type Report struct {
	Summary         string        `json:"summary"`
	LowStock        []LowStock    `json:"lowStockItems"`
	TopBorrowed     []TopBorrowed `json:"mostBorrowedItems"`
	Recommendations []string      `json:"recommendations"`
}

// Generator produces reports.
type Generator interface {
	Generate(ctx context.Context, in Input) (Report, error)
}

// HTTPGenerator posts Input to a report endpoint.
type HTTPGenerator struct {
	endpoint string
	http     *http.Client
	log      zerolog.Logger
}

// NewHTTPGenerator returns a generator for endpoint. A blank endpoint yields
// a generator whose every call fails.
func NewHTTPGenerator(endpoint string, log zerolog.Logger) *HTTPGenerator {
	return &HTTPGenerator{
		endpoint: strings.TrimSpace(endpoint),
		http:     &http.Client{Timeout: 2 * time.Minute},
		log:      log.With().Str("component", "report").Logger(),
	}
}

// Generate requests a report.
func (g *HTTPGenerator) Generate(ctx context.Context, in Input) (Report, error) {
	if g.endpoint == "" {
		return Report{}, fmt.Errorf("%w: no report endpoint configured", ErrReportGenerationFailed)
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return Report{}, fmt.Errorf("%w: encode input: %v", ErrReportGenerationFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Report{}, fmt.Errorf("%w: build request: %v", ErrReportGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		g.log.Warn().Err(err).Msg("report request failed")
		return Report{}, fmt.Errorf("%w: %v", ErrReportGenerationFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Report{}, fmt.Errorf("%w: read response: %v", ErrReportGenerationFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.log.Warn().Int("status", resp.StatusCode).Msg("report service error")
		return Report{}, fmt.Errorf("%w: service returned %s", ErrReportGenerationFailed, resp.Status)
	}

	var out Report
	if err := json.Unmarshal(body, &out); err != nil {
		return Report{}, fmt.Errorf("%w: decode report: %v", ErrReportGenerationFailed, err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return Report{}, fmt.Errorf("%w: report has no summary", ErrReportGenerationFailed)
	}

	g.log.Info().
		Dur("elapsed", time.Since(started)).
		Int("low_stock", len(out.LowStock)).
		Int("recommendations", len(out.Recommendations)).
		Msg("report generated")
	return out, nil
}
