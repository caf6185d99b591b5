package audio_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/m-mizutani/gt"
	"google.golang.org/genai"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/repository"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/service/ai"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/audio"
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

type stubStorage struct {
	objects map[string][]byte
	err     error
}

func (s *stubStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStorage) Download(ctx context.Context, key string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

const transcribeResponse = `{"raw_text":"call the dentist tomorrow","ai_title":"Dentist reminder","ai_summary":"A reminder to call.","keywords":["dentist","call","reminder"]}`

func ownerThoughts(t *testing.T, repo *repository.Memory, ownerID string) []*model.Thought {
	t.Helper()
	thoughts, err := repo.ListOwnerThoughts(context.Background(), ownerID, 0)
	gt.NoError(t, err)
	return thoughts
}

func TestHandleObject(t *testing.T) {
	repo := repository.NewMemory()
	gemini := &stubGemini{response: transcribeResponse}
	storage := &stubStorage{objects: map[string][]byte{
		"user_audio/user-1/note.webm": {0x01, 0x02, 0x03},
	}}
	uc := audio.New(repo, ai.New(gemini), storage)
	ctx := context.Background()

	ev := audio.ObjectEvent{
		Bucket:      "my-bucket",
		Name:        "user_audio/user-1/note.webm",
		ContentType: "audio/webm",
	}
	gt.NoError(t, uc.HandleObject(ctx, ev))

	thoughts := ownerThoughts(t, repo, "user-1")
	gt.A(t, thoughts).Length(1)

	created := thoughts[0]
	gt.Equal(t, created.Status, model.StatusProcessed)
	gt.Equal(t, created.RawText, "call the dentist tomorrow")
	gt.Equal(t, created.Title, "Dentist reminder")
	gt.Equal(t, created.Source, model.SourceTypeAudio)
	gt.Equal(t, created.AudioURL, "gs://my-bucket/user_audio/user-1/note.webm")
	gt.A(t, created.Keywords).Length(3)
}

func TestHandleObjectIgnoresNonAudio(t *testing.T) {
	repo := repository.NewMemory()
	gemini := &stubGemini{response: transcribeResponse}
	uc := audio.New(repo, ai.New(gemini), &stubStorage{})
	ctx := context.Background()

	ev := audio.ObjectEvent{
		Bucket:      "my-bucket",
		Name:        "user_audio/user-1/report.pdf",
		ContentType: "application/pdf",
	}
	gt.NoError(t, uc.HandleObject(ctx, ev))
	gt.Equal(t, gemini.calls, 0)
	gt.A(t, ownerThoughts(t, repo, "user-1")).Length(0)
}

func TestHandleObjectIgnoresWrongPrefix(t *testing.T) {
	repo := repository.NewMemory()
	gemini := &stubGemini{response: transcribeResponse}
	uc := audio.New(repo, ai.New(gemini), &stubStorage{})
	ctx := context.Background()

	ev := audio.ObjectEvent{
		Bucket:      "my-bucket",
		Name:        "exports/user-1/note.webm",
		ContentType: "audio/webm",
	}
	gt.NoError(t, uc.HandleObject(ctx, ev))
	gt.Equal(t, gemini.calls, 0)
}

func TestHandleObjectIgnoresMalformedPath(t *testing.T) {
	repo := repository.NewMemory()
	gemini := &stubGemini{response: transcribeResponse}
	uc := audio.New(repo, ai.New(gemini), &stubStorage{})
	ctx := context.Background()

	// No owner segment in the path
	ev := audio.ObjectEvent{
		Bucket:      "my-bucket",
		Name:        "user_audio/stray.webm",
		ContentType: "audio/webm",
	}
	gt.NoError(t, uc.HandleObject(ctx, ev))
	gt.Equal(t, gemini.calls, 0)
}

func TestHandleObjectTranscriptionFailure(t *testing.T) {
	repo := repository.NewMemory()
	gemini := &stubGemini{err: errors.New("model unavailable")}
	storage := &stubStorage{objects: map[string][]byte{
		"user_audio/user-1/note.webm": {0x01},
	}}
	uc := audio.New(repo, ai.New(gemini), storage)
	ctx := context.Background()

	ev := audio.ObjectEvent{
		Bucket:      "my-bucket",
		Name:        "user_audio/user-1/note.webm",
		ContentType: "audio/webm",
	}
	gt.NoError(t, uc.HandleObject(ctx, ev))

	// Failure still leaves a visible record for the user
	thoughts := ownerThoughts(t, repo, "user-1")
	gt.A(t, thoughts).Length(1)

	created := thoughts[0]
	gt.Equal(t, created.Status, model.StatusFailed)
	gt.Equal(t, created.Title, "Error Processing Audio")
	gt.Equal(t, created.RawText, "Audio processing failed. Please try again.")
	gt.S(t, created.Summary).Contains("model unavailable")
}

func TestHandleObjectDownloadFailure(t *testing.T) {
	repo := repository.NewMemory()
	gemini := &stubGemini{response: transcribeResponse}
	storage := &stubStorage{err: errors.New("bucket unreachable")}
	uc := audio.New(repo, ai.New(gemini), storage)
	ctx := context.Background()

	ev := audio.ObjectEvent{
		Bucket:      "my-bucket",
		Name:        "user_audio/user-1/note.webm",
		ContentType: "audio/webm",
	}
	gt.NoError(t, uc.HandleObject(ctx, ev))
	gt.Equal(t, gemini.calls, 0)

	thoughts := ownerThoughts(t, repo, "user-1")
	gt.A(t, thoughts).Length(1)
	gt.Equal(t, thoughts[0].Status, model.StatusFailed)
}
