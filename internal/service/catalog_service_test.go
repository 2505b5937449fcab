package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/cache"
	"preflight/internal/logger"
	"preflight/internal/model"
)

func TestCatalog_ReadsThroughCache(t *testing.T) {
	_, client := newRedis(t)
	repo := &memQuestionRepo{questions: []model.QuestionDefinition{
		{ID: "a", Index: 0, Type: model.QuestionTypeText, Prompt: "A?"},
	}}
	svc := NewCatalogService(repo, cache.NewCatalogCache(client, time.Minute), logger.Nop())
	ctx := context.Background()

	first, err := svc.ListQuestions(ctx)
	require.NoError(t, err)
	second, err := svc.ListQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.reads)

	require.NoError(t, svc.Replace(ctx, []model.QuestionDefinition{
		{ID: "b", Index: 7, Type: model.QuestionTypeNumber, Prompt: "B?"},
		{ID: "a", Index: 3, Type: model.QuestionTypeText, Prompt: "A?"},
	}))
	after, err := svc.ListQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, "a", after[0].ID)
	assert.Equal(t, 0, after[0].Index)
	assert.Equal(t, 1, after[1].Index)
}

func TestCatalog_EmptyCatalog(t *testing.T) {
	svc := NewCatalogService(&memQuestionRepo{}, nil, logger.Nop())
	qs, err := svc.ListQuestions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestNormalizeCatalog(t *testing.T) {
	min, max := 5, 2
	cases := []struct {
		name      string
		questions []model.QuestionDefinition
	}{
		{"missing id", []model.QuestionDefinition{{Prompt: "?"}}},
		{"duplicate id", []model.QuestionDefinition{{ID: "a"}, {ID: "a", Index: 1}}},
		{"duplicate index", []model.QuestionDefinition{{ID: "a", Index: 3}, {ID: "b", Index: 3}}},
		{"inverted bounds", []model.QuestionDefinition{{ID: "a", Validation: &model.ConstraintRecord{MinLength: &min, MaxLength: &max}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeCatalog(tc.questions)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}

	in := []model.QuestionDefinition{{ID: "b", Index: 10}, {ID: "a", Index: 2}}
	out, err := NormalizeCatalog(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, []string{out[0].ID, out[1].ID})
	assert.Equal(t, []int{0, 1}, []int{out[0].Index, out[1].Index}, "gaps are closed")
	assert.Equal(t, 10, in[0].Index, "input is not modified")
}
