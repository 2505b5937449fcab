package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"preflight/internal/model"
)

// QuestionRepo is the question catalog. It is seeded externally and read-only
// to the wizard.
type QuestionRepo interface {
	// ListQuestions returns the catalog ordered by index, empty when unseeded
	ListQuestions(ctx context.Context) ([]model.QuestionDefinition, error)
	GetByID(ctx context.Context, id string) (*model.QuestionDefinition, error)
	// ReplaceAll swaps the whole catalog for the given definitions
	ReplaceAll(ctx context.Context, questions []model.QuestionDefinition) error
}

type questionRepo struct {
	collection *mongo.Collection
}

func NewQuestionRepo(db *mongo.Database) QuestionRepo {
	return &questionRepo{
		collection: db.Collection("questions"),
	}
}

func (r *questionRepo) ListQuestions(ctx context.Context) ([]model.QuestionDefinition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	questions := []model.QuestionDefinition{}
	if err = cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*model.QuestionDefinition, error) {
	var q model.QuestionDefinition
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) ReplaceAll(ctx context.Context, questions []model.QuestionDefinition) error {
	ids := make([]string, 0, len(questions))
	opts := options.Replace().SetUpsert(true)
	for i := range questions {
		q := &questions[i]
		if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": q.ID}, q, opts); err != nil {
			return err
		}
		ids = append(ids, q.ID)
	}

	// Drop definitions that are no longer part of the catalog.
	_, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": ids}})
	return err
}
