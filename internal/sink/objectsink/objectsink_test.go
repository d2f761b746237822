package objectsink

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/stretchr/testify/require"
)

func TestSaveUploadsCatalog(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)

		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		mu.Unlock()

		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewObjectSink(&config.ObjectConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Region:    "us-east-1",
		Bucket:    "catalogs",
		Key:       "catalog.json",
		AccessKey: "key",
		SecretKey: "secret",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	result := &entity.ScanResult{RunID: "run-1", Catalog: entity.Catalog{}}
	require.NoError(t, s.Save(context.Background(), result))
	require.NoError(t, s.Save(context.Background(), result))

	mu.Lock()
	defer mu.Unlock()
	heads, puts := 0, 0
	for _, r := range requests {
		switch {
		case strings.HasPrefix(r, "HEAD /catalogs"):
			heads++
		case r == "PUT /catalogs/catalog.json":
			puts++
		}
	}
	require.Equal(t, 1, heads)
	require.Equal(t, 2, puts)
}

func TestEndpointIsRequired(t *testing.T) {
	_, err := NewObjectSink(&config.ObjectConfig{Bucket: "catalogs"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
