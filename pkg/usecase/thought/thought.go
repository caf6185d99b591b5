package thought

import (
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/repository"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/service/ai"
)

// UseCase provides thought capture and enrichment operations
type UseCase struct {
	repo repository.Repository
	ai   *ai.Service
}

// New creates a new thought UseCase instance
func New(repo repository.Repository, svc *ai.Service) *UseCase {
	return &UseCase{
		repo: repo,
		ai:   svc,
	}
}
