package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripFences(`{"a": 1}`))
}

func TestParseScores(t *testing.T) {
	scores, err := ParseScores(`{"1": 85, "2": 0, "3": 100}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 85, "2": 0, "3": 100}, scores)
}

func TestParseScoresAcceptsNumericStrings(t *testing.T) {
	scores, err := ParseScores(`{"1": "85", "2": 40}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 85, "2": 40}, scores)
}

func TestParseScoresDropsInvalidValues(t *testing.T) {
	scores, err := ParseScores(`{"1": 85, "2": "unknown", "3": null}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 85}, scores)
}

func TestParseScoresRejectsNonObject(t *testing.T) {
	_, err := ParseScores(`[1, 2, 3]`)
	assert.Error(t, err)

	_, err = ParseScores("not json at all")
	assert.Error(t, err)
}

func TestParseScoresStripsFencedResponse(t *testing.T) {
	scores, err := ParseScores("```json\n{\"42\": 7}\n```")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"42": 7}, scores)
}
