package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/store"
	"github.com/sbilab/dataviz/pkg/idx"
)

// ErrParse reports a malformed tabular upload. It is user-facing.
var ErrParse = errors.New("malformed tabular file")

const (
	// MaxUploadBytes caps uploads; files are parsed fully in memory.
	MaxUploadBytes = 10 << 20

	// statsSampleLimit caps the rows read by Stats and by chart rendering
	// in PlotService.GenerateAdHoc and GenerateForPlot.
	statsSampleLimit = 10000
)

// DatasetService ingests tabular uploads into datasets and row records, and
// serves owner-scoped reads over them.
type DatasetService struct {
	Store store.Store
}

// Create parses fileBytes as header-first delimited text and persists one
// dataset document plus one record per row. Column order and row order are
// preserved; row indexes are assigned sequentially from zero.
func (s *DatasetService) Create(ctx context.Context, ownerID idx.ID, name, description string, fileBytes []byte, filename string) (domain.Dataset, error) {
	columns, rows, err := parseCSV(fileBytes)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	now := time.Now().UTC()
	dataset := domain.Dataset{
		ID:          idx.New(),
		UserID:      ownerID,
		Name:        name,
		Description: description,
		Columns:     columns,
		RowCount:    len(rows),
		FileSize:    len(fileBytes),
		FileType:    "csv",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Store.Datasets().CreateDataset(ctx, dataset); err != nil {
		return domain.Dataset{}, fmt.Errorf("persist dataset: %w", err)
	}

	records := make([]domain.DataRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, domain.DataRecord{
			ID:        idx.New(),
			DatasetID: dataset.ID,
			Data:      row,
			RowIndex:  i,
			CreatedAt: now,
		})
	}
	if err := s.Store.DataRecords().CreateDataRecords(ctx, records); err != nil {
		return domain.Dataset{}, fmt.Errorf("persist data records: %w", err)
	}

	return dataset, nil
}

// Get returns the dataset when owned by ownerID, ErrNotFound otherwise.
func (s *DatasetService) Get(ctx context.Context, id, ownerID idx.ID) (domain.Dataset, error) {
	dataset, err := s.Store.Datasets().GetDataset(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Dataset{}, ErrNotFound
		}
		return domain.Dataset{}, fmt.Errorf("get dataset: %w", err)
	}
	return dataset, nil
}

// List returns all datasets owned by ownerID.
func (s *DatasetService) List(ctx context.Context, ownerID idx.ID) ([]domain.Dataset, error) {
	return s.Store.Datasets().ListDatasets(ctx, ownerID)
}

// Rows returns row mappings ordered by row index. A missing or unowned
// dataset yields an empty sequence, never an error; callers that care about
// existence check it separately.
func (s *DatasetService) Rows(ctx context.Context, id, ownerID idx.ID, limit, skip int) ([]domain.Row, error) {
	if _, err := s.Store.Datasets().GetDataset(ctx, id, ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []domain.Row{}, nil
		}
		return nil, fmt.Errorf("get dataset: %w", err)
	}

	records, err := s.Store.DataRecords().ListDataRecords(ctx, id, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list data records: %w", err)
	}

	rows := make([]domain.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Data)
	}
	return rows, nil
}

// Stats computes descriptive statistics over a capped sample of the dataset.
func (s *DatasetService) Stats(ctx context.Context, id, ownerID idx.ID) (domain.DatasetStats, error) {
	dataset, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return domain.DatasetStats{}, err
	}

	rows, err := s.Rows(ctx, id, ownerID, statsSampleLimit, 0)
	if err != nil {
		return domain.DatasetStats{}, err
	}
	if len(rows) == 0 {
		return domain.DatasetStats{}, ErrNotFound
	}

	return computeStats(dataset.Columns, rows), nil
}

// Delete removes the dataset and its records when owned by ownerID and
// reports whether the dataset existed. Child records go first; the storage
// layer has no cascading delete.
func (s *DatasetService) Delete(ctx context.Context, id, ownerID idx.ID) (bool, error) {
	if _, err := s.Store.Datasets().GetDataset(ctx, id, ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get dataset: %w", err)
	}

	if err := s.Store.DataRecords().DeleteDataRecords(ctx, id); err != nil {
		return false, fmt.Errorf("delete data records: %w", err)
	}

	deleted, err := s.Store.Datasets().DeleteDataset(ctx, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete dataset: %w", err)
	}
	return deleted, nil
}

// parseCSV reads header-first delimited text. Header names are taken
// verbatim in file order; duplicate headers are not deduplicated, so the
// last duplicate's cell wins within each row.
func parseCSV(data []byte) ([]string, []domain.Row, error) {
	reader := csv.NewReader(bytes.NewReader(data))

	columns, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	var rows []domain.Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}

		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = inferValue(record[i])
		}
		rows = append(rows, row)
	}

	return columns, rows, nil
}

// inferValue types a cell without any declared schema: empty and NaN-like
// cells are missing, numerics become numbers, literal true/false become
// booleans, everything else stays text.
func inferValue(cell string) domain.Value {
	if cell == "" {
		return domain.Null()
	}

	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return domain.Null()
		}
		return domain.Number(f)
	}

	switch strings.ToLower(cell) {
	case "true":
		return domain.Bool(true)
	case "false":
		return domain.Bool(false)
	case "nan", "null":
		return domain.Null()
	}

	return domain.String(cell)
}

func computeStats(columns []string, rows []domain.Row) domain.DatasetStats {
	stats := domain.DatasetStats{
		TotalRows:     len(rows),
		TotalColumns:  len(columns),
		ColumnTypes:   make(map[string]string, len(columns)),
		MissingValues: make(map[string]int, len(columns)),
		SummaryStats:  make(map[string]domain.NumericSummary),
	}

	for _, col := range columns {
		var (
			missing int
			nums    []float64
			hasBool bool
			hasText bool
		)

		for _, row := range rows {
			v, ok := row[col]
			if !ok || v.IsNull() {
				missing++
				continue
			}
			switch v.Kind {
			case domain.KindNumber:
				nums = append(nums, v.Num)
			case domain.KindBool:
				hasBool = true
			default:
				hasText = true
			}
		}

		stats.MissingValues[col] = missing

		// All-missing columns count as numeric, like a column of NaNs.
		switch {
		case !hasText && !hasBool:
			stats.ColumnTypes[col] = "number"
			stats.SummaryStats[col] = summarize(nums)
		case hasBool && !hasText && len(nums) == 0:
			stats.ColumnTypes[col] = "boolean"
		default:
			stats.ColumnTypes[col] = "string"
		}
	}

	return stats
}

// summarize computes the five numeric statistics. An empty sample yields all
// zeros rather than failing; a single observation has no spread.
func summarize(nums []float64) domain.NumericSummary {
	if len(nums) == 0 {
		return domain.NumericSummary{}
	}

	sorted := make([]float64, len(nums))
	copy(sorted, nums)
	sort.Float64s(sorted)

	summary := domain.NumericSummary{
		Mean:   stat.Mean(nums, nil),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Median: stat.Quantile(0.5, stat.LinInterp, sorted, nil),
	}
	if len(nums) > 1 {
		summary.Std = stat.StdDev(nums, nil)
	}
	return summary
}
