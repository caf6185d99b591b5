package ai

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/adapter"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
)

//go:embed prompt/enrich.md
var enrichPromptRaw string

//go:embed prompt/transcribe.md
var transcribePromptRaw string

//go:embed prompt/answer.md
var answerPromptRaw string

var (
	enrichPromptTmpl = template.Must(template.New("enrich").Parse(enrichPromptRaw))
	answerPromptTmpl = template.Must(template.New("answer").Parse(answerPromptRaw))
)

const (
	maxTitleLen = 60
	minKeywords = 3
	maxKeywords = 5
)

// Service wraps the generative model with the three operations the
// pipeline needs. All structured outputs go through the same fence
// stripping and bounds enforcement.
type Service struct {
	gemini adapter.Gemini
}

// New creates a new AI service
func New(gemini adapter.Gemini) *Service {
	return &Service{gemini: gemini}
}

// Enrich derives title, summary and keywords from raw thought text
func (s *Service) Enrich(ctx context.Context, rawText string) (*model.Enrichment, error) {
	var buf bytes.Buffer
	if err := enrichPromptTmpl.Execute(&buf, map[string]any{
		"RawText": rawText,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute enrich prompt template")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	resp, err := s.gemini.GenerateContent(ctx, contents, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate enrichment")
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var data struct {
		Title    string   `json:"ai_title"`
		Summary  string   `json:"ai_summary"`
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &data); err != nil {
		return nil, goerr.Wrap(model.ErrMalformedResponse, "enrichment is not valid JSON", goerr.Value("text", text))
	}

	enrichment := &model.Enrichment{
		Title:    data.Title,
		Summary:  data.Summary,
		Keywords: data.Keywords,
	}
	if err := clampEnrichment(enrichment); err != nil {
		return nil, err
	}

	return enrichment, nil
}

// TranscribeAndEnrich transcribes audio bytes and derives metadata from the
// transcription in a single model call
func (s *Service) TranscribeAndEnrich(ctx context.Context, audio []byte, mimeType string) (*model.Transcript, error) {
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(transcribePromptRaw),
		genai.NewPartFromBytes(audio, mimeType),
	}, genai.RoleUser)

	resp, err := s.gemini.GenerateContent(ctx, []*genai.Content{content}, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to transcribe audio")
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var data struct {
		RawText  string   `json:"raw_text"`
		Title    string   `json:"ai_title"`
		Summary  string   `json:"ai_summary"`
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &data); err != nil {
		return nil, goerr.Wrap(model.ErrMalformedResponse, "transcription is not valid JSON", goerr.Value("text", text))
	}
	if data.RawText == "" {
		return nil, goerr.Wrap(model.ErrMalformedResponse, "transcription has no raw text")
	}

	transcript := &model.Transcript{
		RawText: data.RawText,
		Enrichment: model.Enrichment{
			Title:    data.Title,
			Summary:  data.Summary,
			Keywords: data.Keywords,
		},
	}
	if err := clampEnrichment(&transcript.Enrichment); err != nil {
		return nil, err
	}

	return transcript, nil
}

// Answer asks a question grounded in the supplied context lines. The model
// is instructed to answer only from the context.
func (s *Service) Answer(ctx context.Context, query string, contextLines []string) (string, error) {
	var buf bytes.Buffer
	if err := answerPromptTmpl.Execute(&buf, map[string]any{
		"Query":   query,
		"Context": contextLines,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute answer prompt template")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	resp, err := s.gemini.GenerateContent(ctx, contents, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate answer")
	}

	return responseText(resp)
}

// responseText extracts the first text part of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", goerr.Wrap(model.ErrMalformedResponse, "invalid response structure from gemini")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}

	return "", goerr.Wrap(model.ErrMalformedResponse, "response has no text part")
}

// stripFences removes markdown code fences the model tends to wrap JSON in
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// clampEnrichment enforces the metadata bounds: titles are truncated to 60
// characters and keyword lists to 5 entries. Fewer than 3 keywords means
// the model ignored the instructions, which counts as a malformed response.
func clampEnrichment(e *model.Enrichment) error {
	if runes := []rune(e.Title); len(runes) > maxTitleLen {
		e.Title = string(runes[:maxTitleLen])
	}
	if len(e.Keywords) > maxKeywords {
		e.Keywords = e.Keywords[:maxKeywords]
	}
	if len(e.Keywords) < minKeywords {
		return goerr.Wrap(model.ErrMalformedResponse, "too few keywords", goerr.Value("keywords", e.Keywords))
	}
	return nil
}
