package profiles

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/surplus-delivery/internal/auth"
	"github.com/joao-fontenele/surplus-delivery/internal/domain"
	"github.com/joao-fontenele/surplus-delivery/internal/respond"
)

type ProfileStore interface {
	Get(ctx context.Context, userID string) (domain.UserProfile, error)
}

type Handler struct {
	profiles ProfileStore
	logger   *slog.Logger
}

func NewHandler(profiles ProfileStore, logger *slog.Logger) *Handler {
	return &Handler{
		profiles: profiles,
		logger:   logger,
	}
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())

	profile, err := h.profiles.Get(r.Context(), actor.ID)
	if err != nil {
		respond.DomainError(w, h.logger, err, "actor_id", actor.ID)
		return
	}

	// A session whose role disagrees with the stored profile is not trusted.
	if profile.ProfileRole() != actor.Role {
		respond.Error(w, h.logger, http.StatusForbidden, "forbidden")
		return
	}

	view, err := domain.FormatProfile(profile)
	if err != nil {
		respond.DomainError(w, h.logger, err, "actor_id", actor.ID)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, view)
}
