package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kislikjeka/moneybuckets/internal/platform/bucket"
	"github.com/kislikjeka/moneybuckets/internal/platform/importer"
)

// MaxImportSize caps an uploaded statement
const MaxImportSize = 10 << 20

// ImporterInterface defines the import operation needed by ImportHandler
type ImporterInterface interface {
	ImportCSV(ctx context.Context, req importer.Request, r io.Reader) (*importer.Report, error)
}

// BucketGetter resolves the bucket an import targets
type BucketGetter interface {
	GetByID(ctx context.Context, id, userID uuid.UUID) (*bucket.Bucket, error)
}

// ImportHandler handles statement imports
type ImportHandler struct {
	importer ImporterInterface
	buckets  BucketGetter
}

// NewImportHandler creates a new import handler
func NewImportHandler(imp ImporterInterface, buckets BucketGetter) *ImportHandler {
	return &ImportHandler{importer: imp, buckets: buckets}
}

// ImportCSV handles POST /imports/csv?bucket_id=...&skip_duplicates=true.
// The file is read from the multipart field "file", or from the raw body for
// any other content type.
func (h *ImportHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	bucketID, err := uuid.Parse(q.Get("bucket_id"))
	if err != nil {
		respondError(w, "bucket_id query parameter is required", http.StatusBadRequest)
		return
	}

	skip := false
	if v := q.Get("skip_duplicates"); v != "" {
		if skip, err = strconv.ParseBool(v); err != nil {
			respondError(w, "invalid skip_duplicates", http.StatusBadRequest)
			return
		}
	}

	// Fail the whole request early instead of once per row.
	if _, err := h.buckets.GetByID(r.Context(), bucketID, userID); err != nil {
		respondServiceError(w, err, "failed to fetch bucket")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxImportSize)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			respondError(w, "multipart field \"file\" is required", http.StatusBadRequest)
			return
		}
		defer file.Close()
		body = file
	}

	report, err := h.importer.ImportCSV(r.Context(), importer.Request{
		UserID:         userID,
		BucketID:       bucketID,
		SkipDuplicates: skip,
	}, body)
	if err != nil {
		respondServiceError(w, err, "failed to import file")
		return
	}

	respondJSON(w, report, http.StatusOK)
}
