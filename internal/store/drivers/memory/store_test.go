package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/store"
	"github.com/sbilab/dataviz/internal/store/drivers/memory"
	"github.com/sbilab/dataviz/pkg/idx"
)

func TestUsersDuplicateEmail(t *testing.T) {
	t.Parallel()
	st := memory.NewStore()
	ctx := t.Context()

	user := domain.User{ID: idx.New(), Email: "a@example.com", Username: "a", Active: true}
	require.NoError(t, st.Users().CreateUser(ctx, user))

	dup := domain.User{ID: idx.New(), Email: "a@example.com", Username: "b"}
	require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
}

func TestRecordsKeepRowOrder(t *testing.T) {
	t.Parallel()
	st := memory.NewStore()
	ctx := t.Context()

	datasetID := idx.New()
	records := make([]domain.DataRecord, 5)
	for i := range records {
		records[i] = domain.DataRecord{
			ID:        idx.New(),
			DatasetID: datasetID,
			Data:      domain.Row{"n": domain.Number(float64(i))},
			RowIndex:  i,
			CreatedAt: time.Now(),
		}
	}
	require.NoError(t, st.DataRecords().CreateDataRecords(ctx, records))

	listed, err := st.DataRecords().ListDataRecords(ctx, datasetID, 3, 1)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, rec := range listed {
		require.Equal(t, i+1, rec.RowIndex)
	}

	// Skip beyond the end yields nothing rather than an error.
	listed, err = st.DataRecords().ListDataRecords(ctx, datasetID, 10, 99)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestOwnershipFiltering(t *testing.T) {
	t.Parallel()
	st := memory.NewStore()
	ctx := t.Context()

	owner := idx.New()
	dataset := domain.Dataset{ID: idx.New(), UserID: owner, Name: "d", Columns: []string{"a"}}
	require.NoError(t, st.Datasets().CreateDataset(ctx, dataset))

	_, err := st.Datasets().GetDataset(ctx, dataset.ID, idx.New())
	require.ErrorIs(t, err, store.ErrNotFound)

	deleted, err := st.Datasets().DeleteDataset(ctx, dataset.ID, idx.New())
	require.NoError(t, err)
	require.False(t, deleted)

	got, err := st.Datasets().GetDataset(ctx, dataset.ID, owner)
	require.NoError(t, err)
	require.Equal(t, "d", got.Name)
}
