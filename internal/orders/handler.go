package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/surplus-delivery/internal/auth"
	"github.com/joao-fontenele/surplus-delivery/internal/domain"
	"github.com/joao-fontenele/surplus-delivery/internal/respond"
)

// FailedBusinessesHeader names the businesses whose order was not created
// when a checkout only partly succeeds.
const FailedBusinessesHeader = "X-Checkout-Failed-Businesses"

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.service.Checkout(r.Context(), actor.ID, req)
	if err != nil {
		var partial *PartialCheckoutError
		if !errors.As(err, &partial) || len(created) == 0 {
			respond.DomainError(w, h.logger, err, "consumer_id", actor.ID)
			return
		}
		h.logger.Warn("checkout partially failed", "consumer_id", actor.ID, "error", err)
		w.Header().Set(FailedBusinessesHeader, strings.Join(partial.BusinessIDs(), ","))
	}

	h.logger.Info("orders created", "consumer_id", actor.ID, "count", len(created))
	respond.JSON(w, h.logger, http.StatusCreated, created)
}

// HandleListOrders lists the orders of the calling actor, whatever its role.
func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())

	orders, err := h.service.ListOrders(r.Context(), actor)
	if err != nil {
		respond.DomainError(w, h.logger, err, "actor_id", actor.ID)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	id := r.PathValue("id")

	order, err := h.service.GetOrder(r.Context(), actor, id)
	if err != nil {
		respond.DomainError(w, h.logger, err, "order_id", id)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleListOpenRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListOpenRequests(r.Context())
	if err != nil {
		respond.DomainError(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, requests)
}

func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	id := r.PathValue("id")

	order, err := h.service.Claim(r.Context(), actor.ID, id)
	if err != nil {
		respond.DomainError(w, h.logger, err, "order_id", id, "courier_id", actor.ID)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// HandleUpdateStatus applies the requested status with the caller's role
// table.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	h.transition(w, r, id, req.Status)
}

func (h *Handler) HandleConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, r.PathValue("id"), domain.OrderStatusDelivered)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, id string, status domain.OrderStatus) {
	actor, _ := auth.ActorFrom(r.Context())

	order, err := h.service.Transition(r.Context(), actor, id, status)
	if err != nil {
		respond.DomainError(w, h.logger, err, "order_id", id, "status", status)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleEarnings(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())

	summary, err := h.service.Earnings(r.Context(), actor.ID)
	if err != nil {
		respond.DomainError(w, h.logger, err, "courier_id", actor.ID)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, summary)
}
