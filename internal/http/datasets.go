package http

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/service"
	"github.com/sbilab/dataviz/pkg/httpx"
	"github.com/sbilab/dataviz/pkg/idx"
	"github.com/sbilab/dataviz/pkg/slogx"
)

// defaultSampleLimit bounds the rows returned alongside a dataset detail
// when the caller does not pass one.
const defaultSampleLimit = 100

type datasetResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Columns     []string  `json:"columns"`
	RowCount    int       `json:"row_count"`
	FileSize    int       `json:"file_size"`
	FileType    string    `json:"file_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newDatasetResponse(d domain.Dataset) datasetResponse {
	return datasetResponse{
		ID:          d.ID.String(),
		Name:        d.Name,
		Description: d.Description,
		Columns:     d.Columns,
		RowCount:    d.RowCount,
		FileSize:    d.FileSize,
		FileType:    d.FileType,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type DatasetsHandler struct {
	Datasets *service.DatasetService
}

// HandleUpload ingests a multipart CSV upload into a new dataset.
//
//	@Summary		Upload a CSV dataset
//	@Tags			Data
//	@Security		BearerAuth
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"CSV file, at most 10 MiB"
//	@Param			name		formData	string	false	"Dataset name, defaults to the filename"
//	@Param			description	formData	string	false	"Dataset description"
//	@Success		201	{object}	datasetResponse
//	@Failure		400	{object}	httpx.ErrorResponse	"not a CSV, too large, or malformed"
//	@Router			/api/data/upload [post].
func (h *DatasetsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated user")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadBytes+4096)
	if err := r.ParseMultipartForm(service.MaxUploadBytes); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid or oversized multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "only CSV files are supported")
		return
	}
	if header.Size > service.MaxUploadBytes {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "file exceeds the 10 MiB limit")
		return
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		log.Error("reading upload failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	dataset, err := h.Datasets.Create(ctx, user.ID, name, r.FormValue("description"), fileBytes, header.Filename)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("dataset uploaded", "dataset_id", dataset.ID, "rows", dataset.RowCount)
	httpx.WriteJSON(w, http.StatusCreated, newDatasetResponse(dataset))
}

// HandleList returns the caller's datasets.
//
//	@Summary		List datasets
//	@Tags			Data
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}	datasetResponse
//	@Router			/api/data/datasets [get].
func (h *DatasetsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated user")
		return
	}

	datasets, err := h.Datasets.List(ctx, user.ID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	out := make([]datasetResponse, 0, len(datasets))
	for _, d := range datasets {
		out = append(out, newDatasetResponse(d))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet returns one dataset plus a window of its rows.
//
//	@Summary		Get a dataset with sample rows
//	@Tags			Data
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id		path	string	true	"Dataset ID"
//	@Param			limit	query	int		false	"Row window size (default 100)"
//	@Param			skip	query	int		false	"Rows to skip"
//	@Success		200	{object}	map[string]any	"dataset, rows"
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/api/data/datasets/{id} [get].
func (h *DatasetsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated user")
		return
	}

	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", service.ErrNotFound.Error())
		return
	}

	dataset, err := h.Datasets.Get(ctx, id, user.ID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	limit := queryInt(r, "limit", defaultSampleLimit)
	skip := queryInt(r, "skip", 0)
	rows, err := h.Datasets.Rows(ctx, id, user.ID, limit, skip)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"dataset": newDatasetResponse(dataset),
		"rows":    rows,
	})
}

// HandleStats returns descriptive statistics for a dataset.
//
//	@Summary		Dataset statistics
//	@Tags			Data
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path	string	true	"Dataset ID"
//	@Success		200	{object}	domain.DatasetStats
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/api/data/datasets/{id}/stats [get].
func (h *DatasetsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated user")
		return
	}

	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", service.ErrNotFound.Error())
		return
	}

	stats, err := h.Datasets.Stats(ctx, id, user.ID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

// HandleDelete removes a dataset and its rows.
//
//	@Summary		Delete a dataset
//	@Tags			Data
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path	string	true	"Dataset ID"
//	@Success		200	{object}	map[string]any	"success, message"
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/api/data/datasets/{id} [delete].
func (h *DatasetsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated user")
		return
	}

	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", service.ErrNotFound.Error())
		return
	}

	deleted, err := h.Datasets.Delete(ctx, id, user.ID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	if !deleted {
		httpx.WriteError(w, http.StatusNotFound, "not_found", service.ErrNotFound.Error())
		return
	}

	log.Info("dataset deleted", "dataset_id", id)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Dataset deleted successfully",
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
