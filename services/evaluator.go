// services/evaluator.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// EvaluationRequest carries everything the scorer needs about a submission
type EvaluationRequest struct {
	Title        string
	Requirements string
	ReviewURL    string
	Note         string
}

// EvaluationResult is the strictly-typed verdict of the scoring capability
type EvaluationResult struct {
	Approved        bool     `json:"approved"`
	Score           int      `json:"score"` // always clamped to [0,100]
	Feedback        string   `json:"feedback"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// Evaluator scores a submission. Implementations must return ErrEvaluator
// (wrapped) for anything recoverable — the settlement service substitutes a
// fallback score instead of failing the pipeline.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error)
}

const evaluatorAgentID = "forge-code-evaluator"

// OpenAIEvaluator scores submissions through a chat-completion model.
// Every call is budget-checked first and its real cost booked afterwards.
type OpenAIEvaluator struct {
	client  *openai.Client
	model   string
	tracker *BudgetTracker
}

func NewOpenAIEvaluator(tracker *BudgetTracker) (*OpenAIEvaluator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4oMini
		log.Printf("OPENAI_MODEL not set, defaulting to %s", model)
	}
	return &OpenAIEvaluator{
		client:  openai.NewClient(apiKey),
		model:   model,
		tracker: tracker,
	}, nil
}

func (e *OpenAIEvaluator) Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error) {
	prompt := buildEvaluationPrompt(req)

	estimated := e.tracker.EstimateCost(len(prompt))
	ok, err := e.tracker.HasBudget(evaluatorAgentID, estimated)
	if err != nil {
		return nil, fmt.Errorf("budget check failed: %v: %w", err, ErrEvaluator)
	}
	if !ok {
		return nil, fmt.Errorf("estimated cost $%.4f exceeds remaining budget: %w", estimated, ErrBudgetExhausted)
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a code reviewer for an open source bounty platform. You respond only with JSON."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scoring call failed: %v: %w", err, ErrEvaluator)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("scorer returned no choices: %w", ErrEvaluator)
	}

	result, err := parseEvaluation(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	tokens := resp.Usage.TotalTokens
	cost := 0.001 + float64(tokens)*0.00001
	if err := e.tracker.RecordUsage(evaluatorAgentID, "openai-"+e.model, tokens, cost); err != nil {
		// spend bookkeeping must not invalidate a good verdict
		log.Printf("failed to record evaluator usage: %v", err)
	}

	return result, nil
}

func buildEvaluationPrompt(req EvaluationRequest) string {
	var b strings.Builder
	b.WriteString("Evaluate the following bounty submission.\n\n")
	fmt.Fprintf(&b, "Bounty title: %s\n", req.Title)
	fmt.Fprintf(&b, "Requirements: %s\n", req.Requirements)
	if req.ReviewURL != "" {
		fmt.Fprintf(&b, "Pull request: %s\n", req.ReviewURL)
	}
	fmt.Fprintf(&b, "Submitter note: %s\n", req.Note)
	b.WriteString(`
Decide whether to approve, score the work 0-100, and explain.
Respond with JSON only, exactly this shape:
{"approved": boolean, "score": number, "feedback": "...", "strengths": [...], "weaknesses": [...], "recommendations": [...]}`)
	return b.String()
}

// parseEvaluation extracts and validates the JSON verdict from raw model
// output. Anything malformed or schema-violating comes back as ErrEvaluator.
func parseEvaluation(raw string) (*EvaluationResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in scorer output: %w", ErrEvaluator)
	}

	// score as float first: models often emit 85.0
	var parsed struct {
		Approved        *bool    `json:"approved"`
		Score           *float64 `json:"score"`
		Feedback        string   `json:"feedback"`
		Strengths       []string `json:"strengths"`
		Weaknesses      []string `json:"weaknesses"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("malformed scorer output: %v: %w", err, ErrEvaluator)
	}
	if parsed.Approved == nil || parsed.Score == nil {
		return nil, fmt.Errorf("scorer output missing approved/score fields: %w", ErrEvaluator)
	}

	return &EvaluationResult{
		Approved:        *parsed.Approved,
		Score:           ClampScore(int(*parsed.Score + 0.5)),
		Feedback:        parsed.Feedback,
		Strengths:       parsed.Strengths,
		Weaknesses:      parsed.Weaknesses,
		Recommendations: parsed.Recommendations,
	}, nil
}

// ClampScore forces a score into [0,100]. Out-of-range values from a
// misbehaving scorer are clamped, never rejected.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
