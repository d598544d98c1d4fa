package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvaluation(t *testing.T) {
	t.Run("clean JSON", func(t *testing.T) {
		result, err := parseEvaluation(`{"approved": true, "score": 85, "feedback": "good work", "strengths": ["clean code"], "weaknesses": [], "recommendations": ["add tests"]}`)
		require.NoError(t, err)
		assert.True(t, result.Approved)
		assert.Equal(t, 85, result.Score)
		assert.Equal(t, "good work", result.Feedback)
		assert.Equal(t, []string{"clean code"}, result.Strengths)
	})

	t.Run("JSON wrapped in prose", func(t *testing.T) {
		raw := "Sure, here is my evaluation:\n```json\n{\"approved\": false, \"score\": 30, \"feedback\": \"incomplete\"}\n```\nLet me know if you need more."
		result, err := parseEvaluation(raw)
		require.NoError(t, err)
		assert.False(t, result.Approved)
		assert.Equal(t, 30, result.Score)
	})

	t.Run("fractional score rounds", func(t *testing.T) {
		result, err := parseEvaluation(`{"approved": true, "score": 84.6}`)
		require.NoError(t, err)
		assert.Equal(t, 85, result.Score)
	})

	t.Run("out of range score clamps", func(t *testing.T) {
		result, err := parseEvaluation(`{"approved": true, "score": 150}`)
		require.NoError(t, err)
		assert.Equal(t, 100, result.Score)

		result, err = parseEvaluation(`{"approved": false, "score": -20}`)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Score)
	})

	t.Run("no JSON at all", func(t *testing.T) {
		_, err := parseEvaluation("I could not evaluate this submission.")
		assert.ErrorIs(t, err, ErrEvaluator)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := parseEvaluation(`{"approved": true, "score":`)
		assert.ErrorIs(t, err, ErrEvaluator)
	})

	t.Run("missing verdict fields", func(t *testing.T) {
		_, err := parseEvaluation(`{"feedback": "looks fine"}`)
		assert.ErrorIs(t, err, ErrEvaluator)

		_, err = parseEvaluation(`{"approved": true}`)
		assert.ErrorIs(t, err, ErrEvaluator)
	})
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 0, ClampScore(0))
	assert.Equal(t, 57, ClampScore(57))
	assert.Equal(t, 100, ClampScore(100))
	assert.Equal(t, 100, ClampScore(250))
}

func TestBuildEvaluationPrompt(t *testing.T) {
	prompt := buildEvaluationPrompt(EvaluationRequest{
		Title:        "Fix pagination bug",
		Requirements: "Cursor-based pagination on the bounty list",
		ReviewURL:    "https://github.com/acme/repo/pull/42",
		Note:         "Done, see the PR",
	})
	assert.Contains(t, prompt, "Fix pagination bug")
	assert.Contains(t, prompt, "https://github.com/acme/repo/pull/42")
	assert.Contains(t, prompt, `"approved"`)

	// the PR line is omitted when no URL was submitted
	prompt = buildEvaluationPrompt(EvaluationRequest{Title: "t", Requirements: "r", Note: "n"})
	assert.NotContains(t, prompt, "Pull request")
}

func TestBudgetTracker(t *testing.T) {
	db := newTestDB(t)
	tracker := &BudgetTracker{DB: db, Budget: 1.0}
	const agent = "forge-code-evaluator"

	spent, err := tracker.Spent(agent)
	require.NoError(t, err)
	assert.Zero(t, spent)

	ok, err := tracker.HasBudget(agent, 0.5)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, tracker.RecordUsage(agent, "openai", 1200, 0.7))

	spent, err = tracker.Spent(agent)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, spent, 1e-9)

	ok, err = tracker.HasBudget(agent, 0.5)
	require.NoError(t, err)
	assert.False(t, ok, "a call that would exceed the cap is refused")

	ok, err = tracker.HasBudget(agent, 0.3)
	require.NoError(t, err)
	assert.True(t, ok)

	// another agent's spend does not count against this one
	require.NoError(t, tracker.RecordUsage("other-agent", "openai", 500, 0.4))
	spent, err = tracker.Spent(agent)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, spent, 1e-9)

	stats, err := tracker.Stats(agent)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalCalls)
	assert.InDelta(t, 0.7, stats.TotalCost, 1e-9)
	assert.InDelta(t, 0.7, stats.AverageCost, 1e-9)
	assert.InDelta(t, 0.3, stats.Remaining, 1e-9)
}

func TestEstimateCostGrowsWithPrompt(t *testing.T) {
	tracker := &BudgetTracker{Budget: DefaultAgentBudget}
	small := tracker.EstimateCost(200)
	large := tracker.EstimateCost(20000)
	assert.Greater(t, large, small)
	assert.Greater(t, small, 0.0)
}
