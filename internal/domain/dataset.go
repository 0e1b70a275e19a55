package domain

import (
	"time"

	"github.com/sbilab/dataviz/pkg/idx"
)

// Dataset describes one ingested tabular upload. Columns and RowCount reflect
// the file at creation time and never change afterwards.
type Dataset struct {
	ID          idx.ID
	UserID      idx.ID
	Name        string
	Description string
	Columns     []string // header order preserved
	RowCount    int
	FileSize    int
	FileType    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DataRecord holds one source row. RowIndex is unique within a dataset and
// assigned sequentially from zero at ingestion; reads order by it.
type DataRecord struct {
	ID        idx.ID
	DatasetID idx.ID
	Data      Row
	RowIndex  int
	CreatedAt time.Time
}

// NumericSummary are the descriptive statistics computed for numeric columns.
type NumericSummary struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// DatasetStats summarizes a dataset over a capped row sample.
type DatasetStats struct {
	TotalRows     int                       `json:"total_rows"`
	TotalColumns  int                       `json:"total_columns"`
	ColumnTypes   map[string]string         `json:"column_types"`
	MissingValues map[string]int            `json:"missing_values"`
	SummaryStats  map[string]NumericSummary `json:"summary_stats"`
}
