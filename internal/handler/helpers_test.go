package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/promptfolio/api/internal/catalog"
	"github.com/promptfolio/api/internal/linkpreview"
	"github.com/promptfolio/api/internal/shareid"
	"github.com/promptfolio/api/internal/testutil"
)

const testSecret = "test-secret"

type fakePreviews struct {
	record *linkpreview.Record
	err    error
	urls   []string
}

func (f *fakePreviews) Get(ctx context.Context, url string) (*linkpreview.Record, error) {
	f.urls = append(f.urls, url)
	return f.record, f.err
}

// testHandler creates a Handler backed by an in-memory SQLite catalog and
// mounts it on a chi router with the production paths.
func testHandler(t *testing.T, previews PreviewSource) (http.Handler, *sql.DB, *shareid.Codec) {
	t.Helper()

	db := testutil.TestDB(t)
	codec, err := shareid.New(testSecret)
	if err != nil {
		t.Fatalf("shareid.New: %v", err)
	}
	if previews == nil {
		previews = &fakePreviews{}
	}

	h := New(Dependencies{
		Codec:     codec,
		Catalog:   catalog.NewRepository(db),
		Previews:  previews,
		PublicURL: "https://promptfolio.example/",
	})

	r := chi.NewRouter()
	r.Get("/api/companies", h.ListCompanies)
	r.Get("/api/companies/{token}", h.GetCompany)
	r.Get("/api/companies/{token}/jobs", h.ListCompanyJobs)
	r.Get("/api/jobs", h.ListJobs)
	r.Get("/api/jobs/{token}", h.GetJob)
	r.Post("/api/link-preview", h.LinkPreview)

	return r, db, codec
}

func doRequest(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding body: %v\nbody: %s", err, rec.Body.String())
	}
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["error"] != message {
		t.Errorf("error = %q, want %q", resp["error"], message)
	}
}
