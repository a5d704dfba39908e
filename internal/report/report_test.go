package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
)

func TestHTTPGenerator_Generate(t *testing.T) {
	var received Input
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"summary": "Glassware is in high demand.",
			"lowStockItems": [{"itemName": "Beaker", "availableQuantity": 1, "totalQuantity": 10}],
			"mostBorrowedItems": [{"itemName": "Beaker", "borrowCount": 7}],
			"recommendations": ["Order more beakers"]
		}`))
	}))
	t.Cleanup(srv.Close)

	in := Input{
		Items: []api.Item{{ID: "i1", Name: "Beaker", TotalQuantity: 10, AvailableQuantity: 1}},
		Logs:  []api.LogEntry{{ID: "l1", ItemID: "i1", Quantity: 2}},
		Users: []api.User{{ID: "u1"}},
	}
	got, err := NewHTTPGenerator(srv.URL, zerolog.Nop()).Generate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, in, received)
	assert.Equal(t, "Glassware is in high demand.", got.Summary)
	assert.Equal(t, []LowStock{{ItemName: "Beaker", Available: 1, Total: 10}}, got.LowStock)
	assert.Equal(t, []TopBorrowed{{ItemName: "Beaker", BorrowCount: 7}}, got.TopBorrowed)
	assert.Equal(t, []string{"Order more beakers"}, got.Recommendations)
}

func TestHTTPGenerator_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, wantMsg: "500"},
		{name: "unparseable output", status: http.StatusOK, body: `not json`, wantMsg: "decode report"},
		{name: "empty report", status: http.StatusOK, body: `{"recommendations": []}`, wantMsg: "no summary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			_, err := NewHTTPGenerator(srv.URL, zerolog.Nop()).Generate(context.Background(), Input{})
			assert.ErrorIs(t, err, ErrReportGenerationFailed)
			assert.ErrorContains(t, err, tt.wantMsg)
		})
	}
}

func TestHTTPGenerator_Unconfigured(t *testing.T) {
	_, err := NewHTTPGenerator("", zerolog.Nop()).Generate(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrReportGenerationFailed)
	assert.ErrorContains(t, err, "no report endpoint")
}

func TestHTTPGenerator_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPGenerator(url, zerolog.Nop()).Generate(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrReportGenerationFailed)
}
