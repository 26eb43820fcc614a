package inventory

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/surplus-delivery/internal/auth"
	"github.com/joao-fontenele/surplus-delivery/internal/domain"
	"github.com/joao-fontenele/surplus-delivery/internal/respond"
)

type ListingStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error)
	GetForOwner(ctx context.Context, ownerID, id string) (*domain.Listing, error)
	UpdateForOwner(ctx context.Context, ownerID, id string, patch domain.ListingPatch) (*domain.Listing, error)
}

type Handler struct {
	listings ListingStore
	logger   *slog.Logger
}

func NewHandler(listings ListingStore, logger *slog.Logger) *Handler {
	return &Handler{
		listings: listings,
		logger:   logger,
	}
}

func (h *Handler) HandleListFoodItems(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())

	items, err := h.listings.ListByOwner(r.Context(), actor.ID)
	if err != nil {
		respond.DomainError(w, h.logger, err, "business_id", actor.ID)
		return
	}

	h.logger.Info("food items listed", "business_id", actor.ID, "count", len(items))
	respond.JSON(w, h.logger, http.StatusOK, items)
}

func (h *Handler) HandleGetFoodItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	id := r.PathValue("id")

	item, err := h.listings.GetForOwner(r.Context(), actor.ID, id)
	if err != nil {
		respond.DomainError(w, h.logger, err, "business_id", actor.ID, "listing_id", id)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, item)
}

func (h *Handler) HandleUpdateFoodItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	id := r.PathValue("id")

	var patch domain.ListingPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respond.Error(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if patch.Empty() {
		respond.Error(w, h.logger, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := patch.Validate(); err != nil {
		respond.DomainError(w, h.logger, err)
		return
	}

	item, err := h.listings.UpdateForOwner(r.Context(), actor.ID, id, patch)
	if err != nil {
		respond.DomainError(w, h.logger, err, "business_id", actor.ID, "listing_id", id)
		return
	}

	h.logger.Info("food item updated", "business_id", actor.ID, "listing_id", id)
	respond.JSON(w, h.logger, http.StatusOK, item)
}
