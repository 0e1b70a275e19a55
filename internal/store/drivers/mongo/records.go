package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/pkg/idx"
)

type dataRecordsRepo struct {
	coll *mongo.Collection
}

type dataRecordDoc struct {
	ID        string         `bson:"_id"`
	DatasetID string         `bson:"dataset_id"`
	Data      map[string]any `bson:"data"`
	RowIndex  int            `bson:"row_index"`
	CreatedAt time.Time      `bson:"created_at"`
}

func (r *dataRecordsRepo) CreateDataRecords(ctx context.Context, records []domain.DataRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]any, 0, len(records))
	for _, rec := range records {
		docs = append(docs, dataRecordDoc{
			ID:        rec.ID.String(),
			DatasetID: rec.DatasetID.String(),
			Data:      rec.Data.Interface(),
			RowIndex:  rec.RowIndex,
			CreatedAt: rec.CreatedAt,
		})
	}

	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("mongo: insert data records: %w", err)
	}
	return nil
}

func (r *dataRecordsRepo) ListDataRecords(ctx context.Context, datasetID idx.ID, limit, skip int) ([]domain.DataRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "row_index", Value: 1}}).
		SetSkip(int64(skip))
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, bson.M{"dataset_id": datasetID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list data records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []domain.DataRecord
	for cursor.Next(ctx) {
		var doc dataRecordDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode data record: %w", err)
		}
		records = append(records, domain.DataRecord{
			ID:        idx.ID(doc.ID),
			DatasetID: idx.ID(doc.DatasetID),
			Data:      domain.RowOf(doc.Data),
			RowIndex:  doc.RowIndex,
			CreatedAt: doc.CreatedAt,
		})
	}
	return records, cursor.Err()
}

func (r *dataRecordsRepo) DeleteDataRecords(ctx context.Context, datasetID idx.ID) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"dataset_id": datasetID.String()}); err != nil {
		return fmt.Errorf("mongo: delete data records: %w", err)
	}
	return nil
}
