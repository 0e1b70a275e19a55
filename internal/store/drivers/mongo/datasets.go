package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/pkg/idx"
)

type datasetsRepo struct {
	coll *mongo.Collection
}

type datasetDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Columns     []string  `bson:"columns"`
	RowCount    int       `bson:"row_count"`
	FileSize    int       `bson:"file_size"`
	FileType    string    `bson:"file_type"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toDatasetDoc(d domain.Dataset) datasetDoc {
	return datasetDoc{
		ID:          d.ID.String(),
		UserID:      d.UserID.String(),
		Name:        d.Name,
		Description: d.Description,
		Columns:     d.Columns,
		RowCount:    d.RowCount,
		FileSize:    d.FileSize,
		FileType:    d.FileType,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (d datasetDoc) toDomain() domain.Dataset {
	return domain.Dataset{
		ID:          idx.ID(d.ID),
		UserID:      idx.ID(d.UserID),
		Name:        d.Name,
		Description: d.Description,
		Columns:     d.Columns,
		RowCount:    d.RowCount,
		FileSize:    d.FileSize,
		FileType:    d.FileType,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (r *datasetsRepo) CreateDataset(ctx context.Context, d domain.Dataset) error {
	if _, err := r.coll.InsertOne(ctx, toDatasetDoc(d)); err != nil {
		return fmt.Errorf("mongo: insert dataset: %w", err)
	}
	return nil
}

func (r *datasetsRepo) GetDataset(ctx context.Context, id, userID idx.ID) (domain.Dataset, error) {
	filter := bson.M{"_id": id.String(), "user_id": userID.String()}

	var doc datasetDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return domain.Dataset{}, mapNotFound(err)
	}
	return doc.toDomain(), nil
}

func (r *datasetsRepo) ListDatasets(ctx context.Context, userID idx.ID) ([]domain.Dataset, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID.String()})
	if err != nil {
		return nil, fmt.Errorf("mongo: list datasets: %w", err)
	}
	defer cursor.Close(ctx)

	var datasets []domain.Dataset
	for cursor.Next(ctx) {
		var doc datasetDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode dataset: %w", err)
		}
		datasets = append(datasets, doc.toDomain())
	}
	return datasets, cursor.Err()
}

func (r *datasetsRepo) DeleteDataset(ctx context.Context, id, userID idx.ID) (bool, error) {
	filter := bson.M{"_id": id.String(), "user_id": userID.String()}

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("mongo: delete dataset: %w", err)
	}
	return res.DeletedCount > 0, nil
}
