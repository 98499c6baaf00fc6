// Package llm talks to an OpenAI-compatible API for quiz generation
// and answer explanations.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"quizhub/internal/model"
	"quizhub/internal/service"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping checks the API is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM API ping: %w", err)
	}
	return nil
}

// GenerateQuiz asks the LLM to produce a complete multiple-choice quiz
// on the given topic, pitched at the given difficulty level. The model
// is asked for JSON; its output still gets validated upstream.
func (c *Client) GenerateQuiz(ctx context.Context, topic string, questionCount int, level model.Level) (*model.GeneratedQuiz, error) {
	systemPrompt := buildGenerateSystemPrompt(topic, questionCount, level)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Generate the quiz about %q now.", topic)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM generation response", "raw", raw)

	quiz, err := parseGeneratedQuiz(raw)
	if err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	return quiz, nil
}

// Explain produces short feedback on a checked answer.
func (c *Client) Explain(ctx context.Context, req service.ExplainRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: explainSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildExplainPrompt(req)},
		},
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

const explainSystemPrompt = "You are a friendly teacher explaining quiz answers to school students. " +
	"Keep explanations short, encouraging, and age-appropriate. Two or three sentences at most."

func buildGenerateSystemPrompt(topic string, questionCount int, level model.Level) string {
	var sb strings.Builder
	sb.WriteString("You are an educational quiz generator for school students.\n\n")
	sb.WriteString("TOPIC: " + topic + "\n")
	sb.WriteString(fmt.Sprintf("DIFFICULTY: %s (grade %s)\n", level.Description, level.Code))
	sb.WriteString(fmt.Sprintf("QUESTION COUNT: %d\n\n", questionCount))

	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString(fmt.Sprintf("- Write exactly %d multiple-choice questions on the topic.\n", questionCount))
	sb.WriteString("- Every question has exactly 4 answers, and exactly 1 of them is correct.\n")
	sb.WriteString("- Pitch the language and difficulty at the stated grade.\n")
	sb.WriteString("- Keep question texts under 512 characters and answer texts under 128 characters.\n")
	sb.WriteString("\nRespond ONLY with a JSON object with these fields:\n")
	sb.WriteString(`{"title": "<quiz title>", "questions": [{"text": "<question>", "answers": [{"text": "<answer>", "is_correct": <true/false>}]}]}`)
	sb.WriteString("\n")

	return sb.String()
}

func buildExplainPrompt(req service.ExplainRequest) string {
	var sb strings.Builder
	sb.WriteString("QUIZ: " + req.QuizTitle + "\n")
	sb.WriteString("LEVEL: " + req.LevelDescription + "\n")
	sb.WriteString("QUESTION: " + req.QuestionText + "\n")
	sb.WriteString("CORRECT ANSWER: " + req.CorrectAnswerText + "\n\n")

	if req.WasCorrect {
		sb.WriteString("The student picked the correct answer. ")
		sb.WriteString("Briefly explain why this answer is right, reinforcing what they got right.\n")
	} else {
		sb.WriteString("STUDENT'S ANSWER: " + req.StudentAnswerText + "\n\n")
		sb.WriteString("The student picked the wrong answer. ")
		sb.WriteString("Briefly explain why their answer is wrong and why the correct one is right, without discouraging them.\n")
	}
	return sb.String()
}

// parseGeneratedQuiz decodes the model's JSON output, tolerating a
// markdown code fence around it.
func parseGeneratedQuiz(raw string) (*model.GeneratedQuiz, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	var quiz model.GeneratedQuiz
	if err := json.Unmarshal([]byte(cleaned), &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}
