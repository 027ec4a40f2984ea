package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"aspirant-quiz-service/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned no content")

// contentGenerator is the subset of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client asks a Gemini model for quizzes and insight pages.
// It implements app.QuizGenerator and app.InsightGenerator.
type Client struct {
	models contentGenerator
	model  string
	logger *zap.Logger
}

// New connects to the Gemini API with apiKey.
func New(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newClient(gc.Models, model, logger), nil
}

func newClient(models contentGenerator, model string, logger *zap.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{models: models, model: model, logger: logger}
}

// GenerateQuiz returns up to count questions for the request. Shape checks of
// the individual questions are left to the caller.
func (c *Client) GenerateQuiz(ctx context.Context, req domain.QuizRequest, count int) (domain.QuestionSet, error) {
	var set domain.QuestionSet
	if err := c.generateJSON(ctx, quizPrompt(req, count), quizSchema, &set); err != nil {
		return domain.QuestionSet{}, err
	}
	return set, nil
}

func (c *Client) GenerateCurrentAffairs(ctx context.Context, month string, year int) ([]domain.CurrentAffair, error) {
	var out struct {
		Summaries []domain.CurrentAffair `json:"summaries"`
	}
	if err := c.generateJSON(ctx, currentAffairsPrompt(month, year), currentAffairsSchema, &out); err != nil {
		return nil, err
	}
	if len(out.Summaries) == 0 {
		return nil, ErrEmptyResponse
	}
	return out.Summaries, nil
}

func (c *Client) GenerateExamResult(ctx context.Context, examName string) (domain.ExamResult, error) {
	var out domain.ExamResult
	if err := c.generateJSON(ctx, examResultPrompt(examName), examResultSchema, &out); err != nil {
		return domain.ExamResult{}, err
	}
	if out.CutoffMarks == nil {
		out.CutoffMarks = []domain.CutoffMark{}
	}
	return out, nil
}

func (c *Client) GenerateExplanation(ctx context.Context, topic string) (string, error) {
	var out struct {
		Explanation string `json:"explanation"`
	}
	if err := c.generateJSON(ctx, explanationPrompt(topic), explanationSchema, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Explanation) == "" {
		return "", ErrEmptyResponse
	}
	return out.Explanation, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return fmt.Errorf("generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		c.logger.Debug("undecodable model output", zap.String("model", c.model), zap.String("text", text))
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

// responseText joins the text parts of the first candidate, dropping a
// markdown code fence if the model added one.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	return text
}
