package domain

import (
	"time"

	"github.com/sbilab/dataviz/pkg/idx"
)

// PlotType enumerates the supported chart shapes.
type PlotType string

const (
	PlotScatter   PlotType = "scatter"
	PlotLine      PlotType = "line"
	PlotBar       PlotType = "bar"
	PlotHistogram PlotType = "histogram"
	PlotBox       PlotType = "box"
)

// Valid reports whether t is a supported plot type.
func (t PlotType) Valid() bool {
	switch t {
	case PlotScatter, PlotLine, PlotBar, PlotHistogram, PlotBox:
		return true
	}
	return false
}

// Plot is a stored plot definition. The dataset reference is validated
// against the owner at creation time; axis columns are only checked at
// render time.
type Plot struct {
	ID        idx.ID
	UserID    idx.ID
	DatasetID idx.ID
	Title     string
	Type      PlotType
	XAxis     string
	YAxis     string // empty means absent
	Config    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlotUpdate carries a partial update; nil fields are left untouched.
type PlotUpdate struct {
	Title  *string
	Type   *PlotType
	XAxis  *string
	YAxis  *string
	Config map[string]any
}

// PlotSpec is the render input shared by ad-hoc previews and persisted plot
// playback.
type PlotSpec struct {
	Type   PlotType
	Title  string
	XAxis  string
	YAxis  string
	Config map[string]any
}

// ChartDocument is a serializable chart description: a "data" list of traces
// plus a "layout" mapping. Rendering to pixels is the client's job.
type ChartDocument map[string]any
