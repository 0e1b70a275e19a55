package service_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/service"
	"github.com/sbilab/dataviz/internal/store/drivers/memory"
	"github.com/sbilab/dataviz/pkg/idx"
)

func newDatasetService() *service.DatasetService {
	return &service.DatasetService{Store: memory.NewStore()}
}

func mustIngest(t *testing.T, s *service.DatasetService, owner idx.ID, csvText string) domain.Dataset {
	t.Helper()
	dataset, err := s.Create(t.Context(), owner, "test data", "", []byte(csvText), "test.csv")
	require.NoError(t, err)
	return dataset
}

func TestDatasetCreateFromCSV(t *testing.T) {
	t.Parallel()
	datasets := newDatasetService()
	owner := idx.New()

	dataset := mustIngest(t, datasets, owner, "a,b,c\n1,x,true\n2,y,false\n")

	require.Equal(t, []string{"a", "b", "c"}, dataset.Columns)
	require.Equal(t, 2, dataset.RowCount)
	require.Equal(t, "csv", dataset.FileType)
	require.Positive(t, dataset.FileSize)

	rows, err := datasets.Rows(t.Context(), dataset.ID, owner, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, domain.Number(1), rows[0]["a"])
	require.Equal(t, domain.String("x"), rows[0]["b"])
	require.Equal(t, domain.Bool(true), rows[0]["c"])
	require.Equal(t, domain.Number(2), rows[1]["a"])
}

func TestDatasetCreateTypeInference(t *testing.T) {
	t.Parallel()
	datasets := newDatasetService()
	owner := idx.New()

	dataset := mustIngest(t, datasets, owner, "v\n3.5\n-2\nNaN\n\nTRUE\nhello\n1e3\n")

	rows, err := datasets.Rows(t.Context(), dataset.ID, owner, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 7)

	require.Equal(t, domain.Number(3.5), rows[0]["v"])
	require.Equal(t, domain.Number(-2), rows[1]["v"])
	require.True(t, rows[2]["v"].IsNull(), "NaN cell is missing")
	require.True(t, rows[3]["v"].IsNull(), "empty cell is missing")
	require.Equal(t, domain.Bool(true), rows[4]["v"])
	require.Equal(t, domain.String("hello"), rows[5]["v"])
	require.Equal(t, domain.Number(1000), rows[6]["v"])
}

func TestDatasetCreateRejectsMalformedCSV(t *testing.T) {
	t.Parallel()
	datasets := newDatasetService()

	_, err := datasets.Create(t.Context(), idx.New(), "bad", "", []byte("a,b\n1,2,3\n"), "bad.csv")
	require.ErrorIs(t, err, service.ErrParse)

	_, err = datasets.Create(t.Context(), idx.New(), "empty", "", nil, "empty.csv")
	require.ErrorIs(t, err, service.ErrParse)
}

func TestDatasetRowsOrderAndWindow(t *testing.T) {
	t.Parallel()
	datasets := newDatasetService()
	owner := idx.New()

	dataset := mustIngest(t, datasets, owner, "n\n0\n1\n2\n3\n4\n")

	rows, err := datasets.Rows(t.Context(), dataset.ID, owner, 2, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, domain.Number(1), rows[0]["n"])
	require.Equal(t, domain.Number(2), rows[1]["n"])
}

func TestDatasetOwnershipIsOpaque(t *testing.T) {
	t.Parallel()
	datasets := newDatasetService()
	owner := idx.New()
	stranger := idx.New()

	dataset := mustIngest(t, datasets, owner, "a\n1\n")

	// A stranger probing a real ID learns nothing beyond "not found".
	_, err := datasets.Get(t.Context(), dataset.ID, stranger)
	require.ErrorIs(t, err, service.ErrNotFound)

	rows, err := datasets.Rows(t.Context(), dataset.ID, stranger, 0, 0)
	require.NoError(t, err)
	require.Empty(t, rows)

	deleted, err := datasets.Delete(t.Context(), dataset.ID, stranger)
	require.NoError(t, err)
	require.False(t, deleted)

	// Still intact for the owner.
	_, err = datasets.Get(t.Context(), dataset.ID, owner)
	require.NoError(t, err)
}

func TestDatasetStats(t *testing.T) {
	t.Parallel()
	datasets := newDatasetService()
	owner := idx.New()

	dataset := mustIngest(t, datasets, owner, "num,label,flag,gaps\n1,a,true,\n2,b,false,\n3,a,true,\n4,c,false,\n")

	stats, err := datasets.Stats(t.Context(), dataset.ID, owner)
	require.NoError(t, err)

	require.Equal(t, 4, stats.TotalRows)
	require.Equal(t, 4, stats.TotalColumns)

	require.Equal(t, "number", stats.ColumnTypes["num"])
	require.Equal(t, "string", stats.ColumnTypes["label"])
	require.Equal(t, "boolean", stats.ColumnTypes["flag"])
	// A column of nothing but missing cells reads as numeric.
	require.Equal(t, "number", stats.ColumnTypes["gaps"])

	require.Equal(t, 0, stats.MissingValues["num"])
	require.Equal(t, 4, stats.MissingValues["gaps"])

	num := stats.SummaryStats["num"]
	require.InDelta(t, 2.5, num.Mean, 1e-9)
	require.InDelta(t, 1.0, num.Min, 1e-9)
	require.InDelta(t, 4.0, num.Max, 1e-9)
	require.InDelta(t, 2.5, num.Median, 1e-9)
	require.InDelta(t, 1.2909944487, num.Std, 1e-9)

	gaps := stats.SummaryStats["gaps"]
	require.Zero(t, gaps.Mean)
	require.Zero(t, gaps.Std)
	require.Zero(t, gaps.Min)
	require.Zero(t, gaps.Max)
	require.Zero(t, gaps.Median)
}

func TestDatasetStatsMissingDataset(t *testing.T) {
	t.Parallel()
	datasets := newDatasetService()

	_, err := datasets.Stats(t.Context(), idx.New(), idx.New())
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestDatasetDeleteRemovesRecords(t *testing.T) {
	t.Parallel()
	datasets := newDatasetService()
	owner := idx.New()

	dataset := mustIngest(t, datasets, owner, "a\n1\n2\n")

	deleted, err := datasets.Delete(t.Context(), dataset.ID, owner)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = datasets.Get(t.Context(), dataset.ID, owner)
	require.ErrorIs(t, err, service.ErrNotFound)

	rows, err := datasets.Rows(t.Context(), dataset.ID, owner, 0, 0)
	require.NoError(t, err)
	require.Empty(t, rows)

	// Deleting again reports nothing to delete.
	deleted, err = datasets.Delete(t.Context(), dataset.ID, owner)
	require.NoError(t, err)
	require.False(t, deleted)
}
