package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/store"
	"github.com/sbilab/dataviz/pkg/idx"
)

var (
	// ErrUnsupportedPlotType reports a chart type the renderer cannot draw.
	ErrUnsupportedPlotType = errors.New("unsupported plot type")

	// ErrUnknownColumn reports an axis bound to a column the dataset lacks.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrNoData reports a render attempt against a dataset with no rows.
	ErrNoData = errors.New("dataset has no rows")
)

// PlotService manages saved plot definitions and renders chart documents
// from dataset rows.
type PlotService struct {
	Store    store.Store
	Datasets *DatasetService
}

// Create stores a plot definition bound to one of the owner's datasets. The
// dataset must exist and be owned; the chart type and axes are stored as
// given and checked at render time.
func (s *PlotService) Create(ctx context.Context, ownerID, datasetID idx.ID, title string, ptype domain.PlotType, xAxis, yAxis string, config map[string]any) (domain.Plot, error) {
	if _, err := s.Datasets.Get(ctx, datasetID, ownerID); err != nil {
		return domain.Plot{}, err
	}

	now := time.Now().UTC()
	plot := domain.Plot{
		ID:        idx.New(),
		UserID:    ownerID,
		DatasetID: datasetID,
		Title:     title,
		Type:      ptype,
		XAxis:     xAxis,
		YAxis:     yAxis,
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Plots().CreatePlot(ctx, plot); err != nil {
		return domain.Plot{}, fmt.Errorf("persist plot: %w", err)
	}
	return plot, nil
}

// Get returns the plot when owned by ownerID, ErrNotFound otherwise.
func (s *PlotService) Get(ctx context.Context, id, ownerID idx.ID) (domain.Plot, error) {
	plot, err := s.Store.Plots().GetPlot(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Plot{}, ErrNotFound
		}
		return domain.Plot{}, fmt.Errorf("get plot: %w", err)
	}
	return plot, nil
}

// List returns all plots owned by ownerID.
func (s *PlotService) List(ctx context.Context, ownerID idx.ID) ([]domain.Plot, error) {
	return s.Store.Plots().ListPlots(ctx, ownerID)
}

// Update applies the set fields of upd to an owned plot and returns the
// updated definition.
func (s *PlotService) Update(ctx context.Context, id, ownerID idx.ID, upd domain.PlotUpdate) (domain.Plot, error) {
	if err := s.Store.Plots().UpdatePlot(ctx, id, ownerID, upd); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Plot{}, ErrNotFound
		}
		return domain.Plot{}, fmt.Errorf("update plot: %w", err)
	}
	return s.Get(ctx, id, ownerID)
}

// Delete removes an owned plot and reports whether it existed.
func (s *PlotService) Delete(ctx context.Context, id, ownerID idx.ID) (bool, error) {
	deleted, err := s.Store.Plots().DeletePlot(ctx, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete plot: %w", err)
	}
	return deleted, nil
}

// GenerateAdHoc renders a chart document straight from a plot spec without
// saving anything. Axes are validated against the dataset's columns; a
// missing title gets a generated one.
func (s *PlotService) GenerateAdHoc(ctx context.Context, ownerID, datasetID idx.ID, spec domain.PlotSpec) (domain.ChartDocument, error) {
	dataset, err := s.Datasets.Get(ctx, datasetID, ownerID)
	if err != nil {
		return nil, err
	}

	if !hasColumn(dataset.Columns, spec.XAxis) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, spec.XAxis)
	}
	if spec.YAxis != "" && !hasColumn(dataset.Columns, spec.YAxis) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, spec.YAxis)
	}
	if spec.Title == "" {
		spec.Title = defaultTitle(spec)
	}

	rows, err := s.Datasets.Rows(ctx, datasetID, ownerID, statsSampleLimit, 0)
	if err != nil {
		return nil, err
	}
	return Render(spec, rows)
}

// GenerateForPlot renders the chart document for a saved plot. Columns the
// dataset has since lost are tolerated: a stale y axis degrades to the
// y-less rendering of the chart type instead of failing the request.
func (s *PlotService) GenerateForPlot(ctx context.Context, id, ownerID idx.ID) (domain.ChartDocument, error) {
	plot, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	dataset, err := s.Datasets.Get(ctx, plot.DatasetID, ownerID)
	if err != nil {
		return nil, err
	}

	spec := domain.PlotSpec{
		Type:   plot.Type,
		Title:  plot.Title,
		XAxis:  plot.XAxis,
		YAxis:  plot.YAxis,
		Config: plot.Config,
	}
	if spec.YAxis != "" && !hasColumn(dataset.Columns, spec.YAxis) {
		spec.YAxis = ""
	}
	if spec.Title == "" {
		spec.Title = defaultTitle(spec)
	}

	rows, err := s.Datasets.Rows(ctx, plot.DatasetID, ownerID, statsSampleLimit, 0)
	if err != nil {
		return nil, err
	}
	return Render(spec, rows)
}

// Render builds a chart document from a spec and a row sequence. The result
// has a single trace under "data" and a "layout" carrying the title, axis
// titles and any config overrides.
func Render(spec domain.PlotSpec, rows []domain.Row) (domain.ChartDocument, error) {
	if !spec.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlotType, spec.Type)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	xs := columnValues(rows, spec.XAxis)

	var ys []any
	if spec.YAxis != "" {
		ys = columnValues(rows, spec.YAxis)
	}

	layout := map[string]any{
		"title": map[string]any{"text": spec.Title},
	}
	if spec.XAxis != "" {
		layout["xaxis"] = map[string]any{"title": map[string]any{"text": spec.XAxis}}
	}
	if spec.YAxis != "" {
		layout["yaxis"] = map[string]any{"title": map[string]any{"text": spec.YAxis}}
	}

	var trace map[string]any
	switch spec.Type {
	case domain.PlotScatter, domain.PlotLine:
		mode := "markers"
		if spec.Type == domain.PlotLine {
			mode = "lines"
		}
		if ys == nil {
			ys = ordinals(len(rows))
			layout["yaxis"] = map[string]any{"title": map[string]any{"text": "index"}}
		}
		trace = map[string]any{"type": "scatter", "mode": mode, "x": xs, "y": ys}

	case domain.PlotBar:
		if ys == nil {
			labels, counts := frequencies(rows, spec.XAxis)
			layout["yaxis"] = map[string]any{"title": map[string]any{"text": "Count"}}
			trace = map[string]any{"type": "bar", "x": labels, "y": counts}
		} else {
			trace = map[string]any{"type": "bar", "x": xs, "y": ys}
		}

	case domain.PlotHistogram:
		trace = map[string]any{"type": "histogram", "x": xs}

	case domain.PlotBox:
		if ys == nil {
			trace = map[string]any{"type": "box", "y": xs}
		} else {
			trace = map[string]any{"type": "box", "x": xs, "y": ys}
		}
	}

	// Config overrides land last so callers can restyle anything above.
	for k, v := range spec.Config {
		layout[k] = v
	}

	return domain.ChartDocument{
		"data":   []any{trace},
		"layout": layout,
	}, nil
}

func defaultTitle(spec domain.PlotSpec) string {
	if spec.YAxis != "" {
		return fmt.Sprintf("%s plot of %s vs %s", spec.Type, spec.XAxis, spec.YAxis)
	}
	return fmt.Sprintf("%s plot of %s", spec.Type, spec.XAxis)
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

// columnValues projects one column across all rows, keeping row order.
// Missing cells come through as nil.
func columnValues(rows []domain.Row, col string) []any {
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, row[col].Interface())
	}
	return out
}

func ordinals(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

// frequencies counts distinct display values of a column. Missing cells are
// dropped; results are ordered by descending count, ties by first
// appearance in the data.
func frequencies(rows []domain.Row, col string) ([]any, []any) {
	counts := make(map[string]int)
	var order []string
	for _, row := range rows {
		v, ok := row[col]
		if !ok || v.IsNull() {
			continue
		}
		label := v.Display()
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	labels := make([]any, 0, len(order))
	tallies := make([]any, 0, len(order))
	for _, label := range order {
		labels = append(labels, label)
		tallies = append(tallies, counts[label])
	}
	return labels, tallies
}
