package services

import (
	"context"
	"errors"

	"github.com/barrie-cork/thesis-swarm/domain"
	"github.com/barrie-cork/thesis-swarm/models"
)

type SessionGetter interface {
	GetSession(ctx context.Context, sessionID int) (*models.SearchSession, error)
}

// authorizeSession loads the session and checks that caller owns it.
func authorizeSession(ctx context.Context, repo SessionGetter, caller *domain.Caller, sessionID int) (*models.SearchSession, error) {
	if caller == nil {
		return nil, domain.Unauthorized()
	}

	session, err := repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Search session not found")
		}
		return nil, domain.InternalError("Failed to load search session", err)
	}

	if session.UserID != caller.UserID {
		return nil, domain.Forbidden("You do not have access to this search session")
	}
	return session, nil
}
