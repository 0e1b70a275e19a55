// Package store defines the data access boundary. Concrete drivers (mongo,
// memory) implement Store; services only ever see these interfaces and the
// two sentinel errors.
package store

import (
	"context"
	"errors"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/pkg/idx"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface, exposing one sub-repository per
// collection. Every operation is independently atomic at the single-document
// level; there are no cross-document transactions.
type Store interface {
	Users() Users
	Datasets() Datasets
	DataRecords() DataRecords
	Plots() Plots

	// EnsureIndexes creates the unique and lookup indexes the collections
	// rely on. Safe to call repeatedly.
	EnsureIndexes(ctx context.Context) error

	// Ping verifies the backing connection is alive.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

type Users interface {
	// CreateUser inserts a new user. Returns ErrAlreadyExists when the email
	// is already registered.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByEmail returns the user with the given identity key.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByID returns the user with the given id.
	GetUserByID(ctx context.Context, id idx.ID) (domain.User, error)

	// UpdateUser applies the non-nil fields of upd and bumps updated_at.
	UpdateUser(ctx context.Context, id idx.ID, upd domain.UserUpdate) error
}

type Datasets interface {
	// CreateDataset inserts a new dataset document.
	CreateDataset(ctx context.Context, d domain.Dataset) error

	// GetDataset returns the dataset only when owned by userID. A dataset
	// that exists under another owner reports ErrNotFound, never a
	// permission error.
	GetDataset(ctx context.Context, id, userID idx.ID) (domain.Dataset, error)

	// ListDatasets returns all datasets owned by userID.
	ListDatasets(ctx context.Context, userID idx.ID) ([]domain.Dataset, error)

	// DeleteDataset removes the dataset if owned by userID and reports
	// whether a document was deleted.
	DeleteDataset(ctx context.Context, id, userID idx.ID) (bool, error)
}

type DataRecords interface {
	// CreateDataRecords bulk-inserts the rows of a freshly ingested dataset.
	CreateDataRecords(ctx context.Context, records []domain.DataRecord) error

	// ListDataRecords returns records for a dataset ordered by row_index
	// ascending, honouring skip and limit.
	ListDataRecords(ctx context.Context, datasetID idx.ID, limit, skip int) ([]domain.DataRecord, error)

	// DeleteDataRecords removes every record belonging to the dataset.
	DeleteDataRecords(ctx context.Context, datasetID idx.ID) error
}

type Plots interface {
	// CreatePlot inserts a new plot document.
	CreatePlot(ctx context.Context, p domain.Plot) error

	// GetPlot returns the plot only when owned by userID.
	GetPlot(ctx context.Context, id, userID idx.ID) (domain.Plot, error)

	// ListPlots returns all plots owned by userID.
	ListPlots(ctx context.Context, userID idx.ID) ([]domain.Plot, error)

	// UpdatePlot applies the non-nil fields of upd when the plot is owned by
	// userID and bumps updated_at.
	UpdatePlot(ctx context.Context, id, userID idx.ID, upd domain.PlotUpdate) error

	// DeletePlot removes the plot if owned by userID and reports whether a
	// document was deleted.
	DeletePlot(ctx context.Context, id, userID idx.ID) (bool, error)
}
