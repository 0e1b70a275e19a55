package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/service"
	"github.com/sbilab/dataviz/pkg/httpx"
	"github.com/sbilab/dataviz/pkg/idx"
	"github.com/sbilab/dataviz/pkg/slogx"
)

type plotResponse struct {
	ID        string         `json:"id"`
	DatasetID string         `json:"dataset_id"`
	Title     string         `json:"title"`
	PlotType  string         `json:"plot_type"`
	XAxis     string         `json:"x_axis"`
	YAxis     string         `json:"y_axis,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func newPlotResponse(p domain.Plot) plotResponse {
	return plotResponse{
		ID:        p.ID.String(),
		DatasetID: p.DatasetID.String(),
		Title:     p.Title,
		PlotType:  string(p.Type),
		XAxis:     p.XAxis,
		YAxis:     p.YAxis,
		Config:    p.Config,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type PlotsHandler struct {
	Plots *service.PlotService
}

// HandleCreate stores a new plot definition.
//
//	@Summary		Create a plot
//	@Tags			Plots
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	plotResponse
//	@Failure		404	{object}	httpx.ErrorResponse	"dataset not found"
//	@Router			/api/plots [post].
func (h *PlotsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated user")
		return
	}

	var body struct {
		DatasetID string         `json:"dataset_id"`
		Title     string         `json:"title"`
		PlotType  string         `json:"plot_type"`
		XAxis     string         `json:"x_axis"`
		YAxis     string         `json:"y_axis"`
		Config    map[string]any `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if body.PlotType == "" || body.XAxis == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "plot_type and x_axis are required")
		return
	}

	datasetID, err := idx.Parse(body.DatasetID)
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", service.ErrNotFound.Error())
		return
	}

	plot, err := h.Plots.Create(ctx, user.ID, datasetID, body.Title,
		domain.PlotType(body.PlotType), body.XAxis, body.YAxis, body.Config)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newPlotResponse(plot))
}

// HandleList returns the caller's plots.
//
//	@Summary		List plots
//	@Tags			Plots
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}	plotResponse
//	@Router			/api/plots [get].
func (h *PlotsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated user")
		return
	}

	plots, err := h.Plots.List(ctx, user.ID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	out := make([]plotResponse, 0, len(plots))
	for _, p := range plots {
		out = append(out, newPlotResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet returns one plot definition.
//
//	@Summary		Get a plot
//	@Tags			Plots
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path	string	true	"Plot ID"
//	@Success		200	{object}	plotResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/api/plots/{id} [get].
func (h *PlotsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
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

	plot, err := h.Plots.Get(ctx, id, user.ID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newPlotResponse(plot))
}

// HandleUpdate applies a partial update to a plot definition.
//
//	@Summary		Update a plot
//	@Tags			Plots
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id	path	string	true	"Plot ID"
//	@Success		200	{object}	plotResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/api/plots/{id} [put].
func (h *PlotsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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

	var body struct {
		Title    *string        `json:"title"`
		PlotType *string        `json:"plot_type"`
		XAxis    *string        `json:"x_axis"`
		YAxis    *string        `json:"y_axis"`
		Config   map[string]any `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	upd := domain.PlotUpdate{
		Title:  body.Title,
		XAxis:  body.XAxis,
		YAxis:  body.YAxis,
		Config: body.Config,
	}
	if body.PlotType != nil {
		t := domain.PlotType(*body.PlotType)
		upd.Type = &t
	}

	plot, err := h.Plots.Update(ctx, id, user.ID, upd)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newPlotResponse(plot))
}

// HandleDelete removes a plot definition.
//
//	@Summary		Delete a plot
//	@Tags			Plots
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path	string	true	"Plot ID"
//	@Success		200	{object}	map[string]any	"success, message"
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/api/plots/{id} [delete].
func (h *PlotsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	deleted, err := h.Plots.Delete(ctx, id, user.ID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	if !deleted {
		httpx.WriteError(w, http.StatusNotFound, "not_found", service.ErrNotFound.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Plot deleted successfully",
	})
}

// HandleGenerate renders a chart document from an ad-hoc spec without
// persisting anything.
//
//	@Summary		Generate a chart document
//	@Tags			Plots
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	domain.ChartDocument
//	@Failure		400	{object}	httpx.ErrorResponse	"unsupported type or unknown column"
//	@Failure		404	{object}	httpx.ErrorResponse	"dataset missing or empty"
//	@Router			/api/plots/generate [post].
func (h *PlotsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated user")
		return
	}

	var body struct {
		DatasetID string         `json:"dataset_id"`
		Title     string         `json:"title"`
		PlotType  string         `json:"plot_type"`
		XAxis     string         `json:"x_axis"`
		YAxis     string         `json:"y_axis"`
		Config    map[string]any `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if body.PlotType == "" || body.XAxis == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "plot_type and x_axis are required")
		return
	}

	datasetID, err := idx.Parse(body.DatasetID)
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", service.ErrNotFound.Error())
		return
	}

	chart, err := h.Plots.GenerateAdHoc(ctx, user.ID, datasetID, domain.PlotSpec{
		Type:   domain.PlotType(body.PlotType),
		Title:  body.Title,
		XAxis:  body.XAxis,
		YAxis:  body.YAxis,
		Config: body.Config,
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, chart)
}

// HandleData renders the chart document for a saved plot.
//
//	@Summary		Render a saved plot
//	@Tags			Plots
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path	string	true	"Plot ID"
//	@Success		200	{object}	domain.ChartDocument
//	@Failure		404	{object}	httpx.ErrorResponse	"plot or dataset missing, or dataset empty"
//	@Router			/api/plots/{id}/data [get].
func (h *PlotsHandler) HandleData(w http.ResponseWriter, r *http.Request) {
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

	chart, err := h.Plots.GenerateForPlot(ctx, id, user.ID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, chart)
}
