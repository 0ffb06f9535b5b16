package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/reputation-tracker/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth       *auth.AuthHandler
	Reputation *ReputationHandler
	Groups     *GroupHandler
	Admin      *AdminHandler
}

func RegisterRoutes(r *chi.Mux, log *zap.Logger, corsOrigins []string, h Handlers) huma.API {
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(CORS(corsOrigins))
	r.Use(h.Auth.RefreshSession)

	// Initialize Huma API
	config := huma.DefaultConfig("Reputation Tracker API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
	}
	api := humachi.New(r, config)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	registerOperations(api, h)
	return api
}

func registerOperations(api huma.API, h Handlers) {
	secured := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}}
	}
	largeBody := func(o *huma.Operation) {
		o.MaxBodyBytes = maxExportBytes
	}
	status := func(code int) func(o *huma.Operation) {
		return func(o *huma.Operation) { o.DefaultStatus = code }
	}
	tag := func(name string) func(o *huma.Operation) {
		return func(o *huma.Operation) { o.Tags = append(o.Tags, name) }
	}

	huma.Get(api, "/me", h.Auth.HandleMe, secured)

	// Imports
	huma.Post(api, "/import", h.Reputation.HandleImport, secured, largeBody, tag("import"))
	huma.Post(api, stagingPath, h.Reputation.HandleStage, largeBody, tag("import"))
	huma.Post(api, stagingPath+"/{code}", h.Reputation.HandleClaim, secured, tag("import"))

	// Reads
	huma.Get(api, "/my-reputations", h.Reputation.HandleMyReputations, secured, tag("reputations"))
	huma.Delete(api, "/my-reputations", h.Reputation.HandleDeleteMyReputations, secured, status(http.StatusNoContent), tag("reputations"))

	// Groups
	huma.Get(api, "/groups", h.Groups.HandleList, secured, tag("groups"))
	huma.Post(api, "/groups", h.Groups.HandleCreate, secured, status(http.StatusCreated), tag("groups"))
	huma.Get(api, "/groups/{uid}/members", h.Groups.HandleMembers, secured, tag("groups"))
	huma.Post(api, "/groups/{uid}/members", h.Groups.HandleAddMember, secured, tag("groups"))
	huma.Delete(api, "/groups/{uid}/members/{userId}", h.Groups.HandleRemoveMember, secured, status(http.StatusNoContent), tag("groups"))
	huma.Get(api, "/groups/{uid}/reputations", h.Groups.HandleReputations, secured, tag("groups"))

	// Invitations
	huma.Get(api, "/groups/{uid}/invite-link", h.Groups.HandleGetInviteLink, secured, tag("invitations"))
	huma.Post(api, "/groups/{uid}/invite-link", h.Groups.HandleCreateInviteLink, secured, status(http.StatusCreated), tag("invitations"))
	huma.Delete(api, "/groups/{uid}/invite-link", h.Groups.HandleDeleteInviteLink, secured, status(http.StatusNoContent), tag("invitations"))
	huma.Get(api, "/invite/{code}", h.Groups.HandlePreviewInvite, tag("invitations"))
	huma.Post(api, "/invite/{code}", h.Groups.HandleJoin, secured, tag("invitations"))
	huma.Get(api, "/groups/{uid}/pending-invites", h.Groups.HandleGroupPendingInvites, secured, tag("invitations"))
	huma.Post(api, "/groups/{uid}/pending-invites", h.Groups.HandleInviteUser, secured, status(http.StatusCreated), tag("invitations"))
	huma.Delete(api, "/groups/{uid}/pending-invites/{id}", h.Groups.HandleCancelPendingInvite, secured, status(http.StatusNoContent), tag("invitations"))
	huma.Get(api, "/me/pending-invites", h.Groups.HandleMyPendingInvites, secured, tag("invitations"))
	huma.Post(api, "/pending-invites/{id}/accept", h.Groups.HandleAcceptPendingInvite, secured, tag("invitations"))
	huma.Post(api, "/pending-invites/{id}/reject", h.Groups.HandleRejectPendingInvite, secured, status(http.StatusNoContent), tag("invitations"))

	// Moderation
	huma.Get(api, "/admin/factions", h.Admin.HandleListFactions, secured, tag("admin"))
	huma.Post(api, "/admin/emblems/{id}/validate", h.Admin.HandleValidate, secured, tag("admin"))
	huma.Get(api, "/admin/emblems/{id}/grades", h.Admin.HandleGetGrades, secured, tag("admin"))
	huma.Put(api, "/admin/emblems/{id}/grades", h.Admin.HandlePutGrades, secured, tag("admin"))
	huma.Get(api, "/admin/emblems/{id}/translations", h.Admin.HandleGetTranslations, secured, tag("admin"))
	huma.Put(api, "/admin/emblems/{id}/translations", h.Admin.HandlePutTranslations, secured, tag("admin"))
	huma.Post(api, translationStagingPath, h.Admin.HandleStageTranslations, largeBody, tag("admin"))
	huma.Get(api, translationStagingPath, h.Admin.HandleTakeTranslations, secured, tag("admin"))
}
