package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reputation-tracker/internal/auth"
	"github.com/gdg-garage/reputation-tracker/internal/models"
	"github.com/gdg-garage/reputation-tracker/internal/reputation"
	"github.com/gdg-garage/reputation-tracker/internal/staging"
	"go.uber.org/zap"
)

// AdminHandler serves taxonomy moderation. Every operation requires an admin
// or moderator, except posting a translation bundle from the bookmarklet.
type AdminHandler struct {
	service     *reputation.Service
	staging     staging.Store
	stagingTTL  time.Duration
	authHandler *auth.AuthHandler
	log         *zap.Logger
}

func NewAdminHandler(service *reputation.Service, store staging.Store, stagingTTL time.Duration, authHandler *auth.AuthHandler, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{service: service, staging: store, stagingTTL: stagingTTL, authHandler: authHandler, log: log}
}

type TaxonomyResponse struct {
	Body []reputation.AdminFaction
}

func (h *AdminHandler) HandleListFactions(ctx context.Context, input *auth.AuthInput) (*TaxonomyResponse, error) {
	if _, err := h.authHandler.RequireModerator(ctx, input.Cookie); err != nil {
		return nil, err
	}
	factions, err := h.service.ListTaxonomy(ctx)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return &TaxonomyResponse{Body: factions}, nil
}

type EmblemRequest struct {
	auth.AuthInput
	ID uint `path:"id"`
}

type EmblemResponse struct {
	Body *models.Emblem
}

func (h *AdminHandler) HandleValidate(ctx context.Context, input *EmblemRequest) (*EmblemResponse, error) {
	moderator, err := h.authHandler.RequireModerator(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	emblem, err := h.service.ValidateEmblem(ctx, input.ID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	h.log.Info("emblem validated by moderator", zap.Uint("emblem_id", emblem.ID), zap.Uint("moderator_id", moderator.ID))
	return &EmblemResponse{Body: emblem}, nil
}

type GradesResponse struct {
	Body struct {
		Grades []reputation.GradeStep `json:"grades"`
	}
}

func (h *AdminHandler) HandleGetGrades(ctx context.Context, input *EmblemRequest) (*GradesResponse, error) {
	if _, err := h.authHandler.RequireModerator(ctx, input.Cookie); err != nil {
		return nil, err
	}
	steps, err := h.service.GetEmblemGradeThresholds(ctx, input.ID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	resp := &GradesResponse{}
	resp.Body.Grades = steps
	return resp, nil
}

type PutGradesRequest struct {
	EmblemRequest
	Body struct {
		Grades []reputation.GradeStep `json:"grades"`
	}
}

func (h *AdminHandler) HandlePutGrades(ctx context.Context, input *PutGradesRequest) (*GradesResponse, error) {
	if _, err := h.authHandler.RequireModerator(ctx, input.Cookie); err != nil {
		return nil, err
	}
	if err := h.service.ReplaceEmblemGradeThresholds(ctx, input.ID, input.Body.Grades); err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return h.HandleGetGrades(ctx, &input.EmblemRequest)
}

type TranslationsResponse struct {
	Body map[string]reputation.Translation
}

func (h *AdminHandler) HandleGetTranslations(ctx context.Context, input *EmblemRequest) (*TranslationsResponse, error) {
	if _, err := h.authHandler.RequireModerator(ctx, input.Cookie); err != nil {
		return nil, err
	}
	translations, err := h.service.GetEmblemTranslations(ctx, input.ID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return &TranslationsResponse{Body: translations}, nil
}

type PutTranslationsRequest struct {
	EmblemRequest
	Body struct {
		Translations []reputation.TranslationInput `json:"translations"`
	}
}

func (h *AdminHandler) HandlePutTranslations(ctx context.Context, input *PutTranslationsRequest) (*TranslationsResponse, error) {
	if _, err := h.authHandler.RequireModerator(ctx, input.Cookie); err != nil {
		return nil, err
	}
	if err := h.service.SetEmblemTranslations(ctx, input.ID, input.Body.Translations); err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return h.HandleGetTranslations(ctx, &input.EmblemRequest)
}

type StageTranslationsRequest struct {
	RawBody []byte `doc:"Exports in fr, en and es posted by the translation bookmarklet"`
}

// HandleStageTranslations keeps a translation bundle until a moderator
// fetches it with the returned code.
func (h *AdminHandler) HandleStageTranslations(ctx context.Context, input *StageTranslationsRequest) (*StageResponse, error) {
	if _, err := reputation.ParseTranslationBundle(input.RawBody); err != nil {
		return nil, huma.Error400BadRequest("Exports in all three languages (fr, en, es) are required", err)
	}
	code, err := h.staging.Put(ctx, staging.KindTranslations, input.RawBody)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	resp := &StageResponse{}
	resp.Body.Code = code
	resp.Body.ExpiresIn = int(h.stagingTTL / time.Second)
	return resp, nil
}

type TakeTranslationsRequest struct {
	auth.AuthInput
	Code string `query:"code" required:"true" minLength:"1" maxLength:"64"`
}

type TakeTranslationsResponse struct {
	Body struct {
		Data reputation.TranslationBundle `json:"data"`
	}
}

func (h *AdminHandler) HandleTakeTranslations(ctx context.Context, input *TakeTranslationsRequest) (*TakeTranslationsResponse, error) {
	if _, err := h.authHandler.RequireModerator(ctx, input.Cookie); err != nil {
		return nil, err
	}
	if !staging.ValidCode(input.Code) {
		return nil, toHTTPError(h.log, staging.ErrNotFound)
	}
	raw, err := h.staging.Take(ctx, staging.KindTranslations, input.Code)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	bundle, err := reputation.ParseTranslationBundle(raw)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	resp := &TakeTranslationsResponse{}
	resp.Body.Data = bundle
	return resp, nil
}
