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

// AnswerRepo stores one answer per (questionnaire, question) pair
type AnswerRepo interface {
	// Upsert replaces the value of an existing pair or inserts a new record.
	// It returns the answer id, which is stable across resubmissions.
	Upsert(ctx context.Context, questionnaireID, questionID string, value model.AnswerValue, skipped bool) (string, error)
	ListByQuestionnaire(ctx context.Context, questionnaireID string) ([]model.AnswerRecord, error)
	DeleteByQuestionnaire(ctx context.Context, questionnaireID string) error
}

type answerRepo struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewAnswerRepo(db *mongo.Database, log *logger.Logger) AnswerRepo {
	repo := &answerRepo{
		collection: db.Collection("answers"),
		now:        time.Now,
	}
	ensureIndex(context.Background(), log, repo.collection, bson.D{
		{Key: "questionnaireId", Value: 1},
		{Key: "questionId", Value: 1},
	}, true)
	return repo
}

func (r *answerRepo) Upsert(ctx context.Context, questionnaireID, questionID string, value model.AnswerValue, skipped bool) (string, error) {
	filter := bson.M{"questionnaireId": questionnaireID, "questionId": questionID}
	update := bson.M{
		"$set": bson.M{
			"value":     value,
			"skipped":   skipped,
			"updatedAt": r.now(),
		},
		"$setOnInsert": bson.M{
			"_id": primitive.NewObjectID().Hex(),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved model.AnswerRecord
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved); err != nil {
		return "", err
	}
	return saved.ID, nil
}

func (r *answerRepo) ListByQuestionnaire(ctx context.Context, questionnaireID string) ([]model.AnswerRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"questionnaireId": questionnaireID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	answers := []model.AnswerRecord{}
	if err = cursor.All(ctx, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *answerRepo) DeleteByQuestionnaire(ctx context.Context, questionnaireID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"questionnaireId": questionnaireID})
	return err
}

func ensureIndex(ctx context.Context, log *logger.Logger, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts}); err != nil {
		log.Warn("failed to create index", "collection", coll.Name(), "error", err)
	}
}
