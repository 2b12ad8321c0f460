package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractWholeText(t *testing.T) {
	rec, err := Extract(`{"final_answer": "42", "confidence": 0.9}`)
	require.NoError(t, err)
	assert.Equal(t, "42", rec["final_answer"])
	assert.Equal(t, 0.9, rec["confidence"])
}

func TestExtractFencedBlock(t *testing.T) {
	raw := "Here is my analysis:\n```json\n{\"analysis\": \"deep\", \"confidence\": 0.8}\n```\nHope that helps!"
	rec, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, "deep", rec["analysis"])
}

func TestExtractFencedBlockWinsOverProseBraces(t *testing.T) {
	// Prose before the fence contains balanced braces; the fenced content
	// must win over a brace scan of the full text.
	raw := "Note that {x} maps to {y} here.\n" +
		"```json\n{\"intermediate_conclusion\": \"from fence\"}\n```"
	rec, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, "from fence", rec["intermediate_conclusion"])
}

func TestExtractUnlabeledFence(t *testing.T) {
	raw := "```\n{\"plan_text\": \"steps\"}\n```"
	rec, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, "steps", rec["plan_text"])
}

func TestExtractBraceScan(t *testing.T) {
	raw := `Sure! The result is {"review_notes": "fine", "overall_quality_score": 0.9} as requested.`
	rec, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, "fine", rec["review_notes"])
}

func TestExtractTrailingCommas(t *testing.T) {
	raw := `{"limitations": ["a", "b",], "confidence": 0.5,}`
	rec, err := Extract(raw)
	require.NoError(t, err)
	assert.Len(t, rec["limitations"], 2)
}

func TestExtractLineComments(t *testing.T) {
	raw := "{\n\"url\": \"http://example.com\", // keep the URL intact\n\"ok\": true\n}"
	rec, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", rec["url"])
	assert.Equal(t, true, rec["ok"])
}

func TestExtractFailure(t *testing.T) {
	for _, raw := range []string{"", "no structure here", "{broken", "[1,2,3]"} {
		_, err := Extract(raw)
		require.Error(t, err, "input %q", raw)
		var ue *UnparsableError
		assert.True(t, errors.As(err, &ue))
	}
}

func TestExtractNestedObjects(t *testing.T) {
	raw := "prefix {\"outer\": {\"inner\": 1}, \"tail\": 2} suffix"
	rec, err := Extract(raw)
	require.NoError(t, err)
	outer, ok := rec["outer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), outer["inner"])
}
