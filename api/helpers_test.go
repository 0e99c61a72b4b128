package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dpanfilo/enforcer/factory"
	"github.com/dpanfilo/enforcer/store/sqlite"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSpec() factory.AnalysisSpec {
	return factory.AnalysisSpec{Today: "2025-12-31"}
}

// setupTestServer returns a router over an in-memory SQLite store, seeded
// with the given scenario unless it is empty.
func setupTestServer(t *testing.T, scenario string) (*Handler, *chi.Mux, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if scenario != "" {
		_, err := SeedScenario(context.Background(), store, scenario)
		require.NoError(t, err)
	}

	h := NewHandler(NewAnalyzer(store, testSpec(), discardLogger()), discardLogger())
	return h, NewRouter(h, nil), store
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
