package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/entity"
	scatalog "github.com/jgivc/stlcatalog/internal/service/catalog"
)

const (
	contentTypeJSON = "application/json"
	headerRunID     = "X-Run-Id"
)

type CatalogService interface {
	GetCatalog(ctx context.Context) (*scatalog.Document, error)
	GetCategory(ctx context.Context, name string) (*scatalog.Document, error)
}

type IndexService interface {
	Index(ctx context.Context) (*entity.ScanResult, error)
}

type indexResponse struct {
	RunID        string       `json:"runId"`
	Stats        entity.Stats `json:"stats"`
	BranchErrors []string     `json:"branchErrors"`
	Duration     string       `json:"duration"`
}

func NewIndexHandler(srv IndexService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "IndexHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		// The build outlives the request.
		result, err := srv.Index(context.Background())
		if err != nil {
			switch {
			case errors.Is(err, common.ErrIndexingProcessHasAlreadyStarted):
				http.Error(w, "Index process has already started", http.StatusConflict)
			default:
				log.Error("Cannot build catalog", slog.Any("error", err))
				http.Error(w, "Cannot build catalog", http.StatusInternalServerError)
			}

			return
		}

		resp := indexResponse{
			RunID:        result.RunID,
			Stats:        result.Catalog.Stats(),
			BranchErrors: make([]string, 0, len(result.BranchErrors)),
			Duration:     result.Duration.String(),
		}
		for _, be := range result.BranchErrors {
			resp.BranchErrors = append(resp.BranchErrors, be.Error())
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error("Cannot write response", slog.Any("error", err))
		}
	}
}

func NewCatalogHandler(srv CatalogService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "CatalogHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := srv.GetCatalog(r.Context())
		if err != nil {
			switch {
			case errors.Is(err, common.ErrCatalogNotFound):
				http.Error(w, "Catalog is not built yet", http.StatusNotFound)
			default:
				log.Error("Cannot get catalog", slog.Any("error", err))
				http.Error(w, "Cannot get catalog", http.StatusInternalServerError)
			}

			return
		}

		writeDocument(w, r, doc)
	}
}

func NewCategoryHandler(srv CatalogService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "CategoryHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("category")
		if name == "" || entity.IsReservedName(name) {
			http.Error(w, "Bad request", http.StatusBadRequest)

			return
		}

		doc, err := srv.GetCategory(r.Context(), name)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrCategoryNotFound), errors.Is(err, common.ErrCatalogNotFound):
				http.Error(w, "Cannot find category", http.StatusNotFound)
			default:
				log.Error("Cannot get category", slog.String("category", name), slog.Any("error", err))
				http.Error(w, "Cannot get category", http.StatusInternalServerError)
			}

			return
		}

		writeDocument(w, r, doc)
	}
}

func writeDocument(w http.ResponseWriter, r *http.Request, doc *scatalog.Document) {
	w.Header().Set("ETag", doc.ETag)
	if doc.RunID != "" {
		w.Header().Set(headerRunID, doc.RunID)
	}

	if match := r.Header.Get("If-None-Match"); match != "" && match == doc.ETag {
		w.WriteHeader(http.StatusNotModified)

		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.Write(doc.Body)
}
