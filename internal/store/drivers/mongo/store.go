// Package mongo implements the store interfaces on a MongoDB database. Each
// collection keeps documents keyed by ULID strings; ownership filters are
// part of every owned-resource query so cross-user lookups surface as
// not-found.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sbilab/dataviz/internal/store"
)

const (
	collUsers       = "users"
	collDatasets    = "datasets"
	collDataRecords = "data_records"
	collPlots       = "plots"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to the MongoDB deployment at uri and binds to the named
// database. The connection is verified with a ping before returning.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Users() store.Users             { return &usersRepo{coll: s.db.Collection(collUsers)} }
func (s *Store) Datasets() store.Datasets       { return &datasetsRepo{coll: s.db.Collection(collDatasets)} }
func (s *Store) DataRecords() store.DataRecords { return &dataRecordsRepo{coll: s.db.Collection(collDataRecords)} }
func (s *Store) Plots() store.Plots             { return &plotsRepo{coll: s.db.Collection(collPlots)} }

// EnsureIndexes creates the unique email index plus the ownership and
// row-order lookup indexes. Index creation is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collDatasets: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		collDataRecords: {
			{
				Keys:    bson.D{{Key: "dataset_id", Value: 1}, {Key: "row_index", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		collPlots: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}

	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: ensure indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}
