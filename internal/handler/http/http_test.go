package httphandler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/entity"
	scatalog "github.com/jgivc/stlcatalog/internal/service/catalog"
	"github.com/stretchr/testify/require"
)

type fakeCatalogService struct {
	docs map[string]*scatalog.Document
	err  error
}

func (f *fakeCatalogService) GetCatalog(_ context.Context) (*scatalog.Document, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.docs[""], nil
}

func (f *fakeCatalogService) GetCategory(_ context.Context, name string) (*scatalog.Document, error) {
	if f.err != nil {
		return nil, f.err
	}

	doc, ok := f.docs[name]
	if !ok {
		return nil, fmt.Errorf("cannot get category %s: %w", name, common.ErrCategoryNotFound)
	}

	return doc, nil
}

type fakeIndexService struct {
	result *entity.ScanResult
	err    error
}

func (f *fakeIndexService) Index(_ context.Context) (*entity.ScanResult, error) {
	return f.result, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMux(cs CatalogService, is IndexService) *http.ServeMux {
	log := testLogger()
	mux := http.NewServeMux()
	mux.Handle("GET /catalog/{$}", NewCatalogHandler(cs, log))
	mux.Handle("GET /catalog/{category}/{$}", NewCategoryHandler(cs, log))
	mux.Handle("POST /index/{$}", NewIndexHandler(is, log))

	return mux
}

func serve(mux http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	return rec
}

func TestCatalogHandlers(t *testing.T) {
	cs := &fakeCatalogService{docs: map[string]*scatalog.Document{
		"":      {Body: []byte(`{"Rings":{}}`), ETag: `"abc"`, RunID: "run-1"},
		"Rings": {Body: []byte(`{"EClip":{}}`), ETag: `"def"`},
	}}
	mux := newMux(cs, &fakeIndexService{})

	tests := []struct {
		name   string
		target string
		hdr    map[string]string
		status int
		body   string
	}{
		{name: "catalog", target: "/catalog/", status: http.StatusOK, body: `{"Rings":{}}`},
		{name: "catalog not modified", target: "/catalog/", hdr: map[string]string{"If-None-Match": `"abc"`}, status: http.StatusNotModified},
		{name: "stale etag", target: "/catalog/", hdr: map[string]string{"If-None-Match": `"old"`}, status: http.StatusOK, body: `{"Rings":{}}`},
		{name: "category", target: "/catalog/Rings/", status: http.StatusOK, body: `{"EClip":{}}`},
		{name: "unknown category", target: "/catalog/Bolts/", status: http.StatusNotFound},
		{name: "reserved category", target: "/catalog/_root/", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, http.MethodGet, tt.target, tt.hdr)
			require.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				require.Equal(t, tt.body, rec.Body.String())
				require.Equal(t, contentTypeJSON, rec.Header().Get("Content-Type"))
				require.NotEmpty(t, rec.Header().Get("ETag"))
			}
		})
	}

	rec := serve(mux, http.MethodGet, "/catalog/", nil)
	require.Equal(t, "run-1", rec.Header().Get(headerRunID))
}

func TestCatalogNotBuilt(t *testing.T) {
	mux := newMux(&fakeCatalogService{err: common.ErrCatalogNotFound}, &fakeIndexService{})

	require.Equal(t, http.StatusNotFound, serve(mux, http.MethodGet, "/catalog/", nil).Code)
	require.Equal(t, http.StatusNotFound, serve(mux, http.MethodGet, "/catalog/Rings/", nil).Code)

	mux = newMux(&fakeCatalogService{err: common.ErrSourceUnavailable}, &fakeIndexService{})
	require.Equal(t, http.StatusInternalServerError, serve(mux, http.MethodGet, "/catalog/", nil).Code)
}

func TestIndexHandler(t *testing.T) {
	result := &entity.ScanResult{
		RunID: "run-2",
		Catalog: entity.Catalog{
			"Rings": {entity.RealKey("EClip"): {entity.DefaultKey(): {
				Path:  "Rings/EClip",
				Files: []entity.ContentFile{{Name: "Ring_A.stl", Path: "Rings/EClip/Ring_A.stl"}},
			}}},
		},
		BranchErrors: []*entity.BranchError{{Path: "Bolts", Err: common.ErrSourceUnavailable}},
		Duration:     time.Second,
	}

	rec := serve(newMux(&fakeCatalogService{}, &fakeIndexService{result: result}), http.MethodPost, "/index/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp indexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "run-2", resp.RunID)
	require.Equal(t, entity.Stats{Categories: 1, Subtypes: 1, Groups: 1, Files: 1}, resp.Stats)
	require.Equal(t, []string{"Bolts: listing unavailable"}, resp.BranchErrors)
	require.Equal(t, "1s", resp.Duration)

	rec = serve(newMux(&fakeCatalogService{}, &fakeIndexService{err: common.ErrIndexingProcessHasAlreadyStarted}), http.MethodPost, "/index/", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(newMux(&fakeCatalogService{}, &fakeIndexService{err: common.ErrSourceFatal}), http.MethodPost, "/index/", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(newMux(&fakeCatalogService{}, &fakeIndexService{}), http.MethodGet, "/index/", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
