package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reputation-tracker/internal/auth"
	"github.com/gdg-garage/reputation-tracker/internal/models"
	"github.com/gdg-garage/reputation-tracker/internal/notifier"
	"github.com/gdg-garage/reputation-tracker/internal/reputation"
	"github.com/gdg-garage/reputation-tracker/internal/staging"
	"go.uber.org/zap"
)

// Exports of players with many emblems are well above huma's 1MB default.
const maxExportBytes = 16 << 20

type ReputationHandler struct {
	service     *reputation.Service
	staging     staging.Store
	stagingTTL  time.Duration
	notifier    notifier.Notifier
	authHandler *auth.AuthHandler
	log         *zap.Logger
}

func NewReputationHandler(service *reputation.Service, store staging.Store, stagingTTL time.Duration, n notifier.Notifier, authHandler *auth.AuthHandler, log *zap.Logger) *ReputationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReputationHandler{
		service:     service,
		staging:     store,
		stagingTTL:  stagingTTL,
		notifier:    n,
		authHandler: authHandler,
		log:         log,
	}
}

type ImportRequest struct {
	auth.AuthInput
	RawBody []byte `contentType:"application/json" doc:"Raw reputation export"`
}

type ImportResponse struct {
	Body *reputation.ImportResult
}

func (h *ReputationHandler) HandleImport(ctx context.Context, input *ImportRequest) (*ImportResponse, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	return h.importFor(ctx, user, input.RawBody)
}

func (h *ReputationHandler) importFor(ctx context.Context, user *models.User, raw []byte) (*ImportResponse, error) {
	if len(raw) == 0 {
		return nil, huma.Error400BadRequest("Empty reputation export")
	}
	result, err := h.service.ImportJSON(ctx, user.ID, raw)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}

	if h.notifier != nil && len(result.NewEmblems) > 0 {
		if err := h.notifier.NotifyNewEmblems(ctx, user.Username, result.NewEmblems); err != nil {
			h.log.Warn("new emblem notification failed", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	return &ImportResponse{Body: result}, nil
}

type StageRequest struct {
	RawBody []byte `doc:"Raw reputation export posted by the bookmarklet"`
}

type StageResponse struct {
	Body struct {
		Code      string `json:"code"`
		ExpiresIn int    `json:"expiresIn" doc:"Seconds before the code expires"`
	}
}

// HandleStage keeps an export posted from the upstream site until its owner
// claims it with the returned code.
func (h *ReputationHandler) HandleStage(ctx context.Context, input *StageRequest) (*StageResponse, error) {
	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("Empty reputation export")
	}
	if _, err := reputation.ParsePayload(input.RawBody); err != nil {
		return nil, toHTTPError(h.log, err)
	}

	code, err := h.staging.Put(ctx, staging.KindReputation, input.RawBody)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	resp := &StageResponse{}
	resp.Body.Code = code
	resp.Body.ExpiresIn = int(h.stagingTTL / time.Second)
	return resp, nil
}

type ClaimRequest struct {
	auth.AuthInput
	Code string `path:"code" minLength:"1" maxLength:"64"`
}

func (h *ReputationHandler) HandleClaim(ctx context.Context, input *ClaimRequest) (*ImportResponse, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	if !staging.ValidCode(input.Code) {
		return nil, toHTTPError(h.log, staging.ErrNotFound)
	}
	raw, err := h.staging.Take(ctx, staging.KindReputation, input.Code)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return h.importFor(ctx, user, raw)
}

type MyReputationsRequest struct {
	auth.AuthInput
	Locale string `query:"locale" doc:"Overlay emblem translations (en, es)"`
}

type MyReputationsResponse struct {
	Body *reputation.UserReputations
}

func (h *ReputationHandler) HandleMyReputations(ctx context.Context, input *MyReputationsRequest) (*MyReputationsResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	reps, err := h.service.GetUserReputations(ctx, userID, readOptions(input.Locale)...)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return &MyReputationsResponse{Body: reps}, nil
}

func (h *ReputationHandler) HandleDeleteMyReputations(ctx context.Context, input *auth.AuthInput) (*struct{}, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	if err := h.service.DeleteUserReputationData(ctx, userID); err != nil {
		return nil, toHTTPError(h.log, err)
	}
	h.log.Info("reputation data deleted", zap.Uint("user_id", userID))
	return nil, nil
}

func readOptions(locale string) []reputation.ReadOption {
	for _, l := range reputation.TranslationLocales {
		if l == locale {
			return []reputation.ReadOption{reputation.WithLocale(locale)}
		}
	}
	return nil
}
