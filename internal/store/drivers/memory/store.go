// Package memory implements the store interfaces on in-process maps. It
// backs service and handler tests and is handy for local development without
// a database. Semantics mirror the mongo driver: ownership filters make
// cross-user lookups indistinguishable from missing documents.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/store"
	"github.com/sbilab/dataviz/pkg/idx"
)

type Store struct {
	mu       sync.RWMutex
	users    map[idx.ID]domain.User
	datasets map[idx.ID]domain.Dataset
	records  map[idx.ID][]domain.DataRecord // keyed by dataset id, kept row-ordered
	plots    map[idx.ID]domain.Plot
}

func NewStore() *Store {
	return &Store{
		users:    make(map[idx.ID]domain.User),
		datasets: make(map[idx.ID]domain.Dataset),
		records:  make(map[idx.ID][]domain.DataRecord),
		plots:    make(map[idx.ID]domain.Plot),
	}
}

func (s *Store) Users() store.Users             { return (*usersRepo)(s) }
func (s *Store) Datasets() store.Datasets       { return (*datasetsRepo)(s) }
func (s *Store) DataRecords() store.DataRecords { return (*dataRecordsRepo)(s) }
func (s *Store) Plots() store.Plots             { return (*plotsRepo)(s) }

func (s *Store) EnsureIndexes(ctx context.Context) error { return nil }
func (s *Store) Ping(ctx context.Context) error          { return nil }
func (s *Store) Close(ctx context.Context) error         { return nil }

type usersRepo Store

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return store.ErrAlreadyExists
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (r *usersRepo) GetUserByID(ctx context.Context, id idx.ID) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *usersRepo) UpdateUser(ctx context.Context, id idx.ID, upd domain.UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}

	if upd.Email != nil {
		for otherID, other := range r.users {
			if otherID != id && other.Email == *upd.Email {
				return store.ErrAlreadyExists
			}
		}
		u.Email = *upd.Email
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
	u.UpdatedAt = time.Now().UTC()

	r.users[id] = u
	return nil
}

type datasetsRepo Store

func (r *datasetsRepo) CreateDataset(ctx context.Context, d domain.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.datasets[d.ID] = d
	return nil
}

func (r *datasetsRepo) GetDataset(ctx context.Context, id, userID idx.ID) (domain.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.datasets[id]
	if !ok || d.UserID != userID {
		return domain.Dataset{}, store.ErrNotFound
	}
	return d, nil
}

func (r *datasetsRepo) ListDatasets(ctx context.Context, userID idx.ID) ([]domain.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Dataset
	for _, d := range r.datasets {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *datasetsRepo) DeleteDataset(ctx context.Context, id, userID idx.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.datasets[id]
	if !ok || d.UserID != userID {
		return false, nil
	}
	delete(r.datasets, id)
	return true, nil
}

type dataRecordsRepo Store

func (r *dataRecordsRepo) CreateDataRecords(ctx context.Context, records []domain.DataRecord) error {
	if len(records) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	datasetID := records[0].DatasetID
	r.records[datasetID] = append(r.records[datasetID], records...)
	sort.Slice(r.records[datasetID], func(i, j int) bool {
		return r.records[datasetID][i].RowIndex < r.records[datasetID][j].RowIndex
	})
	return nil
}

func (r *dataRecordsRepo) ListDataRecords(ctx context.Context, datasetID idx.ID, limit, skip int) ([]domain.DataRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.records[datasetID]
	if skip >= len(records) {
		return nil, nil
	}
	records = records[skip:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	out := make([]domain.DataRecord, len(records))
	copy(out, records)
	return out, nil
}

func (r *dataRecordsRepo) DeleteDataRecords(ctx context.Context, datasetID idx.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, datasetID)
	return nil
}

type plotsRepo Store

func (r *plotsRepo) CreatePlot(ctx context.Context, p domain.Plot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plots[p.ID] = p
	return nil
}

func (r *plotsRepo) GetPlot(ctx context.Context, id, userID idx.ID) (domain.Plot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plots[id]
	if !ok || p.UserID != userID {
		return domain.Plot{}, store.ErrNotFound
	}
	return p, nil
}

func (r *plotsRepo) ListPlots(ctx context.Context, userID idx.ID) ([]domain.Plot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Plot
	for _, p := range r.plots {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *plotsRepo) UpdatePlot(ctx context.Context, id, userID idx.ID, upd domain.PlotUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.plots[id]
	if !ok || p.UserID != userID {
		return store.ErrNotFound
	}

	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Type != nil {
		p.Type = *upd.Type
	}
	if upd.XAxis != nil {
		p.XAxis = *upd.XAxis
	}
	if upd.YAxis != nil {
		p.YAxis = *upd.YAxis
	}
	if upd.Config != nil {
		p.Config = upd.Config
	}
	p.UpdatedAt = time.Now().UTC()

	r.plots[id] = p
	return nil
}

func (r *plotsRepo) DeletePlot(ctx context.Context, id, userID idx.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.plots[id]
	if !ok || p.UserID != userID {
		return false, nil
	}
	delete(r.plots, id)
	return true, nil
}
