package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"preflight/internal/logger"
	"preflight/internal/model"
)

type QuestionnaireRepo interface {
	Create(ctx context.Context, ownerID string) (string, error)
	Get(ctx context.Context, id string) (*model.QuestionnaireRecord, error)
	// SetCompleted only moves an in-progress record; a completed one is
	// left untouched.
	SetCompleted(ctx context.Context, id string, completedAt time.Time) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]model.QuestionnaireRecord, error)
	// ListStale returns in-progress questionnaires started before the cutoff
	ListStale(ctx context.Context, startedBefore time.Time) ([]model.QuestionnaireRecord, error)
}

type questionnaireRepo struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewQuestionnaireRepo(db *mongo.Database, log *logger.Logger) QuestionnaireRepo {
	repo := &questionnaireRepo{
		collection: db.Collection("questionnaires"),
		now:        time.Now,
	}
	ensureIndex(context.Background(), log, repo.collection, bson.D{
		{Key: "ownerId", Value: 1},
		{Key: "startedAt", Value: -1},
	}, false)
	ensureIndex(context.Background(), log, repo.collection, bson.D{
		{Key: "status", Value: 1},
		{Key: "startedAt", Value: 1},
	}, false)
	return repo
}

func (r *questionnaireRepo) Create(ctx context.Context, ownerID string) (string, error) {
	rec := model.QuestionnaireRecord{
		ID:        primitive.NewObjectID().Hex(),
		OwnerID:   ownerID,
		Status:    model.StatusInProgress,
		StartedAt: r.now(),
	}
	if _, err := r.collection.InsertOne(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (r *questionnaireRepo) Get(ctx context.Context, id string) (*model.QuestionnaireRecord, error) {
	var rec model.QuestionnaireRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *questionnaireRepo) SetCompleted(ctx context.Context, id string, completedAt time.Time) error {
	filter := bson.M{"_id": id, "status": model.StatusInProgress}
	update := bson.M{"$set": bson.M{"status": model.StatusCompleted, "completedAt": completedAt}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		existing, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return model.ErrNotFound
		}
	}
	return nil
}

func (r *questionnaireRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *questionnaireRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.QuestionnaireRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	return r.find(ctx, bson.M{"ownerId": ownerID}, opts)
}

func (r *questionnaireRepo) ListStale(ctx context.Context, startedBefore time.Time) ([]model.QuestionnaireRecord, error) {
	filter := bson.M{
		"status":    model.StatusInProgress,
		"startedAt": bson.M{"$lt": startedBefore},
	}
	return r.find(ctx, filter, options.Find())
}

func (r *questionnaireRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.QuestionnaireRecord, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []model.QuestionnaireRecord{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
