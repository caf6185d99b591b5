package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/adapter"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/repository"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/service/ai"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/utils/logging"
)

// objectPrefix is the user-scoped path convention for audio uploads:
// user_audio/<ownerID>/<file>
const objectPrefix = "user_audio/"

// failedRawText is the diagnostic text shown in place of a transcription
const failedRawText = "Audio processing failed. Please try again."

// ObjectEvent describes a finalized storage object
type ObjectEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// UseCase ingests finalized audio objects into thought records
type UseCase struct {
	repo    repository.Repository
	ai      *ai.Service
	storage adapter.Storage
}

// New creates a new audio UseCase instance
func New(repo repository.Repository, svc *ai.Service, storage adapter.Storage) *UseCase {
	return &UseCase{
		repo:    repo,
		ai:      svc,
		storage: storage,
	}
}

// HandleObject processes one storage finalize event. Objects outside the
// user_audio prefix or without an audio content type are ignored. The
// worker always creates a fresh record, terminal from the start: the
// triggering object has no pre-existing document to update. A failed
// transcription becomes a visible failed note rather than vanishing.
func (u *UseCase) HandleObject(ctx context.Context, ev ObjectEvent) error {
	logger := logging.From(ctx)

	if !strings.HasPrefix(ev.ContentType, "audio/") || !strings.HasPrefix(ev.Name, objectPrefix) {
		logger.Debug("ignoring non-audio object", "name", ev.Name, "content_type", ev.ContentType)
		return nil
	}

	parts := strings.Split(ev.Name, "/")
	if len(parts) < 3 || parts[1] == "" {
		logger.Debug("ignoring object outside user scope", "name", ev.Name)
		return nil
	}
	ownerID := parts[1]
	audioURL := fmt.Sprintf("gs://%s/%s", ev.Bucket, ev.Name)

	transcript, err := u.transcribe(ctx, ev)
	if err != nil {
		logger.Warn("audio processing failed", "name", ev.Name, "error", err)

		t := &model.Thought{
			ID:       model.NewThoughtID(),
			OwnerID:  ownerID,
			RawText:  failedRawText,
			Title:    "Error Processing Audio",
			Summary:  err.Error(),
			Status:   model.StatusFailed,
			Source:   model.SourceTypeAudio,
			AudioURL: audioURL,
		}
		return u.repo.PutThought(ctx, t)
	}

	t := &model.Thought{
		ID:       model.NewThoughtID(),
		OwnerID:  ownerID,
		RawText:  transcript.RawText,
		Title:    transcript.Title,
		Summary:  transcript.Summary,
		Keywords: transcript.Keywords,
		Status:   model.StatusProcessed,
		Source:   model.SourceTypeAudio,
		AudioURL: audioURL,
	}
	if err := u.repo.PutThought(ctx, t); err != nil {
		return err
	}

	logger.Info("processed audio thought", "id", t.ID, "owner", ownerID, "object", ev.Name)
	return nil
}

func (u *UseCase) transcribe(ctx context.Context, ev ObjectEvent) (*model.Transcript, error) {
	data, err := u.storage.Download(ctx, ev.Name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download audio object")
	}

	return u.ai.TranscribeAndEnrich(ctx, data, ev.ContentType)
}
