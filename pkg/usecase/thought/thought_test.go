package thought_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"google.golang.org/genai"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/repository"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/service/ai"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/thought"
)

type stubGemini struct {
	response string
	err      error
	calls    int
}

func (s *stubGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: s.response}},
				},
			},
		},
	}, nil
}

const enrichResponse = `{"ai_title":"Garden plans","ai_summary":"Planting tomatoes.","keywords":["garden","tomatoes","spring"]}`

func TestCapture(t *testing.T) {
	repo := repository.NewMemory()
	uc := thought.New(repo, nil)
	ctx := context.Background()

	created, err := uc.Capture(ctx, "user-1", "plant tomatoes this spring")
	gt.NoError(t, err)
	gt.Equal(t, created.Status, model.StatusPending)
	gt.Equal(t, created.Source, model.SourceTypeText)

	// Metadata fields stay empty until the worker runs
	gt.Equal(t, created.Title, "")
	gt.Equal(t, created.Summary, "")
	gt.A(t, created.Keywords).Length(0)

	stored, err := repo.GetThought(ctx, created.ID)
	gt.NoError(t, err)
	gt.Equal(t, stored.RawText, "plant tomatoes this spring")
}

func TestCaptureRejectsEmptyText(t *testing.T) {
	repo := repository.NewMemory()
	uc := thought.New(repo, nil)
	ctx := context.Background()

	_, err := uc.Capture(ctx, "user-1", "   ")
	gt.Error(t, err)

	_, err = uc.Capture(ctx, "", "valid text")
	gt.Error(t, err)
}

func TestEnrich(t *testing.T) {
	repo := repository.NewMemory()
	gemini := &stubGemini{response: enrichResponse}
	uc := thought.New(repo, ai.New(gemini))
	ctx := context.Background()

	created, err := uc.Capture(ctx, "user-1", "plant tomatoes this spring")
	gt.NoError(t, err)

	gt.NoError(t, uc.Enrich(ctx, created.ID))

	enriched, err := repo.GetThought(ctx, created.ID)
	gt.NoError(t, err)
	gt.Equal(t, enriched.Status, model.StatusProcessed)
	gt.Equal(t, enriched.Title, "Garden plans")
	gt.Equal(t, enriched.Summary, "Planting tomatoes.")
	gt.A(t, enriched.Keywords).Length(3)
	gt.V(t, enriched.ProcessedAt).NotNil()
}

func TestEnrichFailureIsTerminal(t *testing.T) {
	repo := repository.NewMemory()
	gemini := &stubGemini{err: errors.New("model unavailable")}
	uc := thought.New(repo, ai.New(gemini))
	ctx := context.Background()

	created, err := uc.Capture(ctx, "user-1", "doomed note")
	gt.NoError(t, err)

	gt.NoError(t, uc.Enrich(ctx, created.ID))

	failed, err := repo.GetThought(ctx, created.ID)
	gt.NoError(t, err)
	gt.Equal(t, failed.Status, model.StatusFailed)
	gt.S(t, failed.ErrorMsg).Contains("model unavailable")
}

func TestEnrichIdempotent(t *testing.T) {
	repo := repository.NewMemory()
	gemini := &stubGemini{response: enrichResponse}
	uc := thought.New(repo, ai.New(gemini))
	ctx := context.Background()

	created, err := uc.Capture(ctx, "user-1", "plant tomatoes")
	gt.NoError(t, err)

	gt.NoError(t, uc.Enrich(ctx, created.ID))
	gt.Equal(t, gemini.calls, 1)

	// Duplicate trigger delivery must not call the model again
	gt.NoError(t, uc.Enrich(ctx, created.ID))
	gt.Equal(t, gemini.calls, 1)
}

func TestEnrichMissingThought(t *testing.T) {
	repo := repository.NewMemory()
	gemini := &stubGemini{response: enrichResponse}
	uc := thought.New(repo, ai.New(gemini))
	ctx := context.Background()

	// A record deleted before the trigger fires is a no-op, not an error
	gt.NoError(t, uc.Enrich(ctx, model.ThoughtID("already-deleted")))
	gt.Equal(t, gemini.calls, 0)
}

func TestEnrichSkipsEmptyRawText(t *testing.T) {
	repo := repository.NewMemory()
	gemini := &stubGemini{response: enrichResponse}
	uc := thought.New(repo, ai.New(gemini))
	ctx := context.Background()

	empty := &model.Thought{
		ID:      model.NewThoughtID(),
		OwnerID: "user-1",
		Status:  model.StatusPending,
	}
	gt.NoError(t, repo.PutThought(ctx, empty))

	gt.NoError(t, uc.Enrich(ctx, empty.ID))
	gt.Equal(t, gemini.calls, 0)

	// Stays pending for the batch sweep to look at later
	stored, err := repo.GetThought(ctx, empty.ID)
	gt.NoError(t, err)
	gt.Equal(t, stored.Status, model.StatusPending)
}

func TestListAndDelete(t *testing.T) {
	repo := repository.NewMemory()
	uc := thought.New(repo, nil)
	ctx := context.Background()

	first, err := uc.Capture(ctx, "user-1", "first note")
	gt.NoError(t, err)
	_, err = uc.Capture(ctx, "user-1", "second note")
	gt.NoError(t, err)

	thoughts, err := uc.List(ctx, "user-1", 0)
	gt.NoError(t, err)
	gt.A(t, thoughts).Length(2)

	gt.NoError(t, uc.Delete(ctx, first.ID))

	thoughts, err = uc.List(ctx, "user-1", 0)
	gt.NoError(t, err)
	gt.A(t, thoughts).Length(1)
}
