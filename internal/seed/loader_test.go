package seed

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/model"
)

const stepMarkdown = `---
id: step-02-team-size
type: slider
prompt: How large is your team?
sliderRange: {min: 1, max: 50, step: 1}
validation:
  required: true
---

# Team size

Free-form notes below the fence are ignored.
`

func TestParseFile_FrontMatter(t *testing.T) {
	qs, err := ParseFile("prds/step-02-team-size.md", []byte(stepMarkdown))
	require.NoError(t, err)
	require.Len(t, qs, 1)

	q := qs[0]
	assert.Equal(t, "step-02-team-size", q.ID)
	assert.Equal(t, 1, q.Index, "index derived from the step prefix")
	assert.Equal(t, model.QuestionTypeSlider, q.Type)
	require.NotNil(t, q.SliderRange)
	assert.Equal(t, 50.0, q.SliderRange.Max)
	assert.True(t, q.Required())
}

func TestParseFile_MissingFrontMatter(t *testing.T) {
	_, err := ParseFile("notes.md", []byte("# just prose\n"))
	assert.Error(t, err)

	_, err = ParseFile("open.md", []byte("---\nid: a\nprompt: A?\n"))
	assert.Error(t, err, "unterminated fence")
}

func TestParseFile_PlainYAML(t *testing.T) {
	list := `
- id: company
  index: 0
  type: text
  prompt: Company name?
- id: goals
  index: 1
  type: multiselect
  prompt: Goals?
  options: [Growth, Retention]
`
	qs, err := ParseFile("catalog.yaml", []byte(list))
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, []string{"Growth", "Retention"}, qs[1].Options)

	wrapped := "questions:\n  - id: company\n    type: text\n    prompt: Company name?\n"
	qs, err = ParseFile("catalog.yml", []byte(wrapped))
	require.NoError(t, err)
	require.Len(t, qs, 1)

	single := "id: budget\ntype: number\nprompt: Budget?\nvalidation: {minValue: 0}\n"
	qs, err = ParseFile("budget.yaml", []byte(single))
	require.NoError(t, err)
	require.Len(t, qs, 1)
	require.NotNil(t, qs[0].Validation.MinValue)
	assert.Equal(t, 0.0, *qs[0].Validation.MinValue)
}

func TestParseFile_RequiresIDAndPrompt(t *testing.T) {
	_, err := ParseFile("a.yaml", []byte("- type: text\n  prompt: Nameless?\n"))
	assert.ErrorContains(t, err, "no id")

	_, err = ParseFile("b.yaml", []byte("- id: silent\n  type: text\n"))
	assert.ErrorContains(t, err, "no prompt")

	_, err = ParseFile("c.yaml", []byte("just a string"))
	assert.Error(t, err)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"prds/step-02-team-size.md": {Data: []byte(stepMarkdown)},
		"prds/step-01-company.md":   {Data: []byte("---\nid: step-01-company\ntype: text\nprompt: Company?\n---\n")},
		"extra/budget.yaml":         {Data: []byte("id: budget\nindex: 5\ntype: number\nprompt: Budget?\n")},
		"README.txt":                {Data: []byte("ignored")},
	}

	qs, err := LoadFS(fsys)
	require.NoError(t, err)
	require.Len(t, qs, 3)

	ids := []string{qs[0].ID, qs[1].ID, qs[2].ID}
	assert.Equal(t, []string{"budget", "step-01-company", "step-02-team-size"}, ids, "lexical path order")
	assert.Equal(t, 0, qs[1].Index)
	assert.Equal(t, 5, qs[0].Index)
}
