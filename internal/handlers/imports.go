package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"warehouse-inventory-api/internal/auth"
	"warehouse-inventory-api/pkg/importer"
)

// ImportRecorder receives the summary of every import run
type ImportRecorder interface {
	Imported(sum importer.ImportSummary)
}

// ImportsHandler handles bulk item imports
type ImportsHandler struct {
	Store    importer.Inserter
	Mapping  *importer.Mapping
	MaxBytes int64
	Recorder ImportRecorder
}

// NewImportsHandler creates a new imports handler. mapping may be nil.
func NewImportsHandler(store importer.Inserter, mapping *importer.Mapping) *ImportsHandler {
	return &ImportsHandler{
		Store:    store,
		Mapping:  mapping,
		MaxBytes: 20 << 20, // 20 MB
	}
}

// Upload imports a CSV or XLSX file sent as the multipart field "file".
// Form values: dry_run=true, max_errors=N.
func (h *ImportsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		BadRequest(w, "content-type must be multipart/form-data")
		return
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	dryRun := r.FormValue("dry_run") == "true"
	maxErrors := 50
	if v := r.FormValue("max_errors"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			BadRequest(w, "max_errors must be a positive integer")
			return
		}
		maxErrors = n
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequest(w, "file is required: "+err.Error())
		return
	}
	defer file.Close()

	format, err := importer.DetectFormat(header.Filename)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	sum, err := importer.Import(r.Context(), h.Store, file, importer.ImportOptions{
		Format:    format,
		Mapping:   h.Mapping,
		DryRun:    dryRun,
		MaxErrors: maxErrors,
	})
	if h.Recorder != nil {
		h.Recorder.Imported(sum)
	}
	if errors.Is(err, importer.ErrTooManyErrors) {
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "IMPORT_FAILED",
			"details": err.Error(),
			"data":    sum,
		})
		return
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}

	status := http.StatusOK
	if sum.Inserted > 0 && !sum.DryRun {
		status = http.StatusCreated
	}
	slog.Default().InfoContext(r.Context(), "items imported",
		"by", auth.UsernameFromContext(r.Context()),
		"file", header.Filename,
		"inserted", sum.Inserted,
		"skipped", sum.Skipped,
		"errors", sum.Errors,
		"dry_run", sum.DryRun,
	)
	WriteData(w, status, sum)
}
