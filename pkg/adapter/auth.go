package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/idtoken"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
)

// Auth validates a bearer credential and resolves the owning user
type Auth interface {
	VerifyToken(ctx context.Context, token string) (ownerID string, err error)
}

// googleAuth validates Google-signed ID tokens
type googleAuth struct {
	validator *idtoken.Validator
	audience  string
}

// NewGoogleAuth creates an Auth backed by Google ID token validation.
// audience may be empty to skip audience checking (local development).
func NewGoogleAuth(ctx context.Context, audience string) (Auth, error) {
	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create idtoken validator")
	}

	return &googleAuth{
		validator: validator,
		audience:  audience,
	}, nil
}

func (a *googleAuth) VerifyToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", goerr.Wrap(model.ErrInvalidCredential, "empty token")
	}

	payload, err := a.validator.Validate(ctx, token, a.audience)
	if err != nil {
		return "", goerr.Wrap(model.ErrInvalidCredential, "token validation failed")
	}
	if payload.Subject == "" {
		return "", goerr.Wrap(model.ErrInvalidCredential, "token has no subject")
	}

	return payload.Subject, nil
}
