package authflow

import (
	"context"
	"errors"
)

// GetUser returns the projection of user id to requester. Only the user
// itself and admins may read it.
func (e *Engine) GetUser(ctx context.Context, requester TokenUser, id string) (TokenUser, error) {
	if e == nil || e.users == nil {
		return TokenUser{}, ErrEngineNotReady
	}
	if err := CheckPermissions(requester, id); err != nil {
		e.emitAudit(ctx, auditEventAccessDenied, false, requester.UserID, "", err, func() map[string]string {
			return map[string]string{"resource_user_id": id}
		})
		return TokenUser{}, err
	}

	user, err := e.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return TokenUser{}, unknownUserID(id)
		}
		return TokenUser{}, internalError("get user: find user", err)
	}
	return NewTokenUser(user), nil
}

// SessionCount returns the number of live sessions of userID.
func (e *Engine) SessionCount(ctx context.Context, userID string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.sessions.CountForUser(ctx, userID)
	if err != nil {
		return 0, internalError("session count", err)
	}
	return n, nil
}
