// Package gemini extracts trip requirements from free text with the Gemini
// API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"grouptrip/internal/adapters/observability"
	"grouptrip/internal/domain"
)

// generator is the slice of the Gemini client the extractor needs.
type generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

type modelGenerator struct{ model *genai.GenerativeModel }

func (g modelGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no content generated")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", errors.New("generated content is not text")
	}
	return string(text), nil
}

// Extractor implements domain.RequirementExtractor.
type Extractor struct {
	client *genai.Client
	gen    generator
	now    func() time.Time
}

func New(ctx context.Context, apiKey, model string) (*Extractor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.ResponseMIMEType = "application/json"
	return &Extractor{client: client, gen: modelGenerator{model: m}, now: time.Now}, nil
}

func (e *Extractor) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

type extracted struct {
	Destination string   `json:"destination"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Headcount   int      `json:"headcount"`
	Budget      *float64 `json:"budget"`
}

const promptTemplate = `Extract the group trip requirements from the request below.
Today is %s. Resolve relative dates against today.
Respond with a single JSON object and nothing else, using exactly these keys:
{"destination": string, "start_date": "YYYY-MM-DD", "end_date": "YYYY-MM-DD", "headcount": integer, "budget": number or null}
Use an empty string or 0 for anything the request does not state.

Request:
%s`

func (e *Extractor) Extract(ctx context.Context, text string) (domain.TripRequirements, error) {
	start := time.Now()
	raw, err := e.gen.GenerateContent(ctx, fmt.Sprintf(promptTemplate, e.now().Format(time.DateOnly), text))
	status := 200
	if err != nil {
		status = 0
	}
	observability.ObserveExternal("gemini", "generate", status, time.Since(start))
	if err != nil {
		return domain.TripRequirements{}, err
	}
	return parse(raw)
}

// parse accepts a bare JSON object or one wrapped in a markdown code fence.
func parse(raw string) (domain.TripRequirements, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}

	var x extracted
	if err := json.Unmarshal([]byte(s), &x); err != nil {
		return domain.TripRequirements{}, fmt.Errorf("decode extraction: %w", err)
	}

	req := domain.TripRequirements{
		Destination: strings.TrimSpace(x.Destination),
		Headcount:   x.Headcount,
	}
	if t, err := time.Parse(time.DateOnly, x.StartDate); err == nil {
		req.StartDate = t
	}
	if t, err := time.Parse(time.DateOnly, x.EndDate); err == nil {
		req.EndDate = t
	}
	if x.Budget != nil && *x.Budget > 0 {
		req.Budget = int64(math.Round(*x.Budget * 100))
	}
	return req, nil
}
