// Package extract is the document extraction adapter: it turns uploaded
// exam and answer-key files into structured batches via an
// OpenAI-compatible backend, and answers word-definition and
// answer-explanation requests.
package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/examdesk/examdesk/internal/extract/prompts"
	"github.com/examdesk/examdesk/internal/model"
)

// ErrInvalidStructure marks a response that decoded as JSON but is
// missing the required top-level array. The HTTP layer maps it to a
// "invalid structure" client error.
var ErrInvalidStructure = errors.New("invalid batch structure")

// File is one uploaded document handed to the extraction backend.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Definition is the backend's answer to a word-definition request.
type Definition struct {
	Word       string `json:"word"`
	Phonetic   string `json:"phonetic"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new extraction client.
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

// Ping verifies the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	return nil
}

// ExtractExam sends the uploaded documents to the backend and returns
// the parsed exam batch.
func (c *Client) ExtractExam(ctx context.Context, files []File) (*model.ExamBatch, error) {
	system, err := prompts.ExtractExam()
	if err != nil {
		return nil, err
	}
	raw, err := c.complete(ctx, system, filesToParts(files))
	if err != nil {
		return nil, fmt.Errorf("extract exam: %w", err)
	}
	return ParseExamBatch(raw)
}

// ExtractReference sends answer-key/tapescript documents to the backend
// and returns the parsed reference batch.
func (c *Client) ExtractReference(ctx context.Context, files []File) (*model.ReferenceBatch, error) {
	system, err := prompts.ExtractReference()
	if err != nil {
		return nil, err
	}
	raw, err := c.complete(ctx, system, filesToParts(files))
	if err != nil {
		return nil, fmt.Errorf("extract reference: %w", err)
	}
	return ParseReferenceBatch(raw)
}

// DefineWord asks the backend for a learner definition of word,
// optionally as used in passage.
func (c *Client) DefineWord(ctx context.Context, word, passage string) (*Definition, error) {
	prompt, err := prompts.DefineWord(prompts.DefineData{Word: word, Passage: passage})
	if err != nil {
		return nil, err
	}
	raw, err := c.complete(ctx, prompt, nil)
	if err != nil {
		return nil, fmt.Errorf("define word: %w", err)
	}
	var def Definition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, fmt.Errorf("parse definition: %w (raw: %s)", err, raw)
	}
	return &def, nil
}

// ExplainAnswer asks the backend why the question's correct answer is
// right.
func (c *Client) ExplainAnswer(ctx context.Context, sec model.ExamSection, q model.Question) (string, error) {
	prompt, err := prompts.ExplainAnswer(prompts.ExplainData{
		SectionTitle:  sec.Title,
		Content:       sec.Content,
		Number:        q.Number,
		Text:          q.Text,
		Options:       q.Options,
		Tapescript:    q.Tapescript,
		CorrectAnswer: q.CorrectAnswer,
	})
	if err != nil {
		return "", err
	}
	raw, err := c.complete(ctx, prompt, nil)
	if err != nil {
		return "", fmt.Errorf("explain answer: %w", err)
	}
	var resp struct {
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return "", fmt.Errorf("parse explanation: %w (raw: %s)", err, raw)
	}
	return resp.Explanation, nil
}

func (c *Client) complete(ctx context.Context, system string, parts []openai.ChatMessagePart) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}
	if len(parts) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: parts,
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: "Respond with the JSON object now.",
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return raw, nil
}

// filesToParts converts uploads into chat message parts: images ride as
// base64 data URLs, everything else is inlined as text.
func filesToParts(files []File) []openai.ChatMessagePart {
	var parts []openai.ChatMessagePart
	for _, f := range files {
		if strings.HasPrefix(f.MIME, "image/") {
			url := "data:" + f.MIME + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url},
			})
			continue
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: fmt.Sprintf("--- %s ---\n%s", f.Name, f.Data),
		})
	}
	return parts
}

// ParseExamBatch decodes an exam batch, rejecting structures missing the
// exams array.
func ParseExamBatch(raw string) (*model.ExamBatch, error) {
	var probe struct {
		Exams *[]model.ExamData `json:"exams"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("parse exam batch: %w", err)
	}
	if probe.Exams == nil {
		return nil, fmt.Errorf("%w: missing exams array", ErrInvalidStructure)
	}
	return &model.ExamBatch{Exams: *probe.Exams}, nil
}

// ParseReferenceBatch decodes a reference batch, rejecting structures
// missing the tests array.
func ParseReferenceBatch(raw string) (*model.ReferenceBatch, error) {
	var probe struct {
		Tests *[]model.ReferenceData `json:"tests"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("parse reference batch: %w", err)
	}
	if probe.Tests == nil {
		return nil, fmt.Errorf("%w: missing tests array", ErrInvalidStructure)
	}
	return &model.ReferenceBatch{Tests: *probe.Tests}, nil
}

// RepairReferenceJSON salvages a reference batch from raw model output
// that is almost JSON: it strips markdown fences and surrounding prose,
// trims to the outermost object, then parses with the usual structure
// validation.
func RepairReferenceJSON(raw string) (*model.ReferenceBatch, error) {
	cleaned, err := salvageJSON(raw)
	if err != nil {
		return nil, err
	}
	return ParseReferenceBatch(cleaned)
}

func salvageJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	// Markdown fences, with or without a language tag.
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{}") {
			s = s[nl+1:]
		}
		if j := strings.LastIndex(s, "```"); j >= 0 {
			s = s[:j]
		}
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object found", ErrInvalidStructure)
	}
	return s[start : end+1], nil
}
