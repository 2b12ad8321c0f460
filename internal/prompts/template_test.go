package prompts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/deepthink/internal/models"
)

func TestRegistryHasAllStages(t *testing.T) {
	r := NewRegistry()
	for _, stage := range []models.Stage{
		models.StagePlan, models.StageSolve, models.StageSynthesize, models.StageReview,
	} {
		tpl, ok := r.ForStage(stage)
		require.True(t, ok, "no template for stage %s", stage)
		assert.Equal(t, stage, tpl.Stage())
		assert.NotEmpty(t, tpl.RequiredParams())
	}
}

func TestRegistryUnknownStage(t *testing.T) {
	r := NewRegistry()
	_, ok := r.ForStage(models.Stage("bogus"))
	assert.False(t, ok)
}

func TestRenderSubstitutesAllParams(t *testing.T) {
	r := NewRegistry()
	tpl, _ := r.ForStage(models.StagePlan)
	out, err := tpl.Render(map[string]string{
		"question":     "Why is the sky blue?",
		"max_subtasks": "6",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Why is the sky blue?")
	assert.Contains(t, out, "3-6")
	assert.NotContains(t, out, "{{")
}

func TestRenderMissingParameter(t *testing.T) {
	r := NewRegistry()
	tpl, _ := r.ForStage(models.StageSolve)
	_, err := tpl.Render(map[string]string{"original_question": "q"})
	require.Error(t, err)
	var mpe *MissingParameterError
	require.True(t, errors.As(err, &mpe))
	assert.NotEmpty(t, mpe.Param)
}

func TestRequiredParams(t *testing.T) {
	tpl := &Template{name: "x", stage: models.StagePlan, text: "{{a}} {{b}} {{a}}"}
	assert.ElementsMatch(t, []string{"a", "b"}, tpl.RequiredParams())
}

func TestTemplatesKeepLiteralJSONBraces(t *testing.T) {
	r := NewRegistry()
	tpl, _ := r.ForStage(models.StageReview)
	out, err := tpl.Render(map[string]string{
		"original_question": "q",
		"final_answer":      "a",
	})
	require.NoError(t, err)
	// The JSON schema example survives rendering untouched.
	assert.Contains(t, out, `"overall_quality_score": 0.85`)
}
