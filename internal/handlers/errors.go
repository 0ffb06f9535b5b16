package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reputation-tracker/internal/groups"
	"github.com/gdg-garage/reputation-tracker/internal/reputation"
	"github.com/gdg-garage/reputation-tracker/internal/staging"
	"go.uber.org/zap"
)

// toHTTPError maps domain errors onto huma status errors. Unknown errors are
// logged and hidden behind a 500.
func toHTTPError(log *zap.Logger, err error) error {
	var statusErr huma.StatusError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &statusErr):
		return err
	case errors.Is(err, reputation.ErrWrongLanguage):
		return huma.Error400BadRequest("The export must be made while the site is displayed in French")
	case errors.Is(err, reputation.ErrMalformedPayload):
		return huma.Error400BadRequest("Invalid reputation export", err)
	case errors.Is(err, reputation.ErrUserNotFound):
		return huma.Error404NotFound("User not found")
	case errors.Is(err, reputation.ErrEmblemNotFound):
		return huma.Error404NotFound("Emblem not found")
	case errors.Is(err, groups.ErrGroupNotFound):
		return huma.Error404NotFound("Group not found")
	case errors.Is(err, groups.ErrNotMember):
		return huma.Error404NotFound("User is not a member of this group")
	case errors.Is(err, groups.ErrLastChef):
		return huma.Error409Conflict("A group needs at least one chef")
	case errors.Is(err, groups.ErrInviteNotFound):
		return huma.Error404NotFound("Invitation not found")
	case errors.Is(err, groups.ErrInviteExpired):
		return huma.Error410Gone("This invitation has expired or is no longer valid")
	case errors.Is(err, groups.ErrAlreadyMember):
		return huma.Error409Conflict("User is already a member of this group")
	case errors.Is(err, groups.ErrAlreadyInvited):
		return huma.Error409Conflict("User already has a pending invitation to this group")
	case errors.Is(err, groups.ErrNotInvitee):
		return huma.Error403Forbidden("This invitation is not addressed to you")
	case errors.Is(err, staging.ErrNotFound):
		return huma.Error404NotFound("Code not found or expired")
	default:
		log.Error("request failed", zap.Error(err))
		return huma.Error500InternalServerError("Internal error")
	}
}
