package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/store"
	"github.com/sbilab/dataviz/pkg/idx"
)

type plotsRepo struct {
	coll *mongo.Collection
}

type plotDoc struct {
	ID        string         `bson:"_id"`
	UserID    string         `bson:"user_id"`
	DatasetID string         `bson:"dataset_id"`
	Title     string         `bson:"title"`
	PlotType  string         `bson:"plot_type"`
	XAxis     string         `bson:"x_axis"`
	YAxis     string         `bson:"y_axis,omitempty"`
	Config    map[string]any `bson:"config,omitempty"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

func toPlotDoc(p domain.Plot) plotDoc {
	return plotDoc{
		ID:        p.ID.String(),
		UserID:    p.UserID.String(),
		DatasetID: p.DatasetID.String(),
		Title:     p.Title,
		PlotType:  string(p.Type),
		XAxis:     p.XAxis,
		YAxis:     p.YAxis,
		Config:    p.Config,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (d plotDoc) toDomain() domain.Plot {
	return domain.Plot{
		ID:        idx.ID(d.ID),
		UserID:    idx.ID(d.UserID),
		DatasetID: idx.ID(d.DatasetID),
		Title:     d.Title,
		Type:      domain.PlotType(d.PlotType),
		XAxis:     d.XAxis,
		YAxis:     d.YAxis,
		Config:    d.Config,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (r *plotsRepo) CreatePlot(ctx context.Context, p domain.Plot) error {
	if _, err := r.coll.InsertOne(ctx, toPlotDoc(p)); err != nil {
		return fmt.Errorf("mongo: insert plot: %w", err)
	}
	return nil
}

func (r *plotsRepo) GetPlot(ctx context.Context, id, userID idx.ID) (domain.Plot, error) {
	filter := bson.M{"_id": id.String(), "user_id": userID.String()}

	var doc plotDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return domain.Plot{}, mapNotFound(err)
	}
	return doc.toDomain(), nil
}

func (r *plotsRepo) ListPlots(ctx context.Context, userID idx.ID) ([]domain.Plot, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID.String()})
	if err != nil {
		return nil, fmt.Errorf("mongo: list plots: %w", err)
	}
	defer cursor.Close(ctx)

	var plots []domain.Plot
	for cursor.Next(ctx) {
		var doc plotDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode plot: %w", err)
		}
		plots = append(plots, doc.toDomain())
	}
	return plots, cursor.Err()
}

func (r *plotsRepo) UpdatePlot(ctx context.Context, id, userID idx.ID, upd domain.PlotUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Type != nil {
		set["plot_type"] = string(*upd.Type)
	}
	if upd.XAxis != nil {
		set["x_axis"] = *upd.XAxis
	}
	if upd.YAxis != nil {
		set["y_axis"] = *upd.YAxis
	}
	if upd.Config != nil {
		set["config"] = upd.Config
	}

	filter := bson.M{"_id": id.String(), "user_id": userID.String()}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongo: update plot: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *plotsRepo) DeletePlot(ctx context.Context, id, userID idx.ID) (bool, error) {
	filter := bson.M{"_id": id.String(), "user_id": userID.String()}

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("mongo: delete plot: %w", err)
	}
	return res.DeletedCount > 0, nil
}
