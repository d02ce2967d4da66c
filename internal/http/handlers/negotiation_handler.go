package handlers

import (
	"errors"

	"dealmate/internal/domain"
	applog "dealmate/internal/log"
	"dealmate/internal/repos"
	"dealmate/internal/services"
	"dealmate/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type NegotiationHandler struct {
	Nego  *services.NegotiationService
	Deals *services.DealService
}

type proposeReq struct {
	DealID      string `json:"deal_id"`
	SellerToken string `json:"seller_token"`
}

// Propose triggers the mediation step. A seller token, when supplied, must
// belong to the deal; the numeric flow itself requires none.
func (h *NegotiationHandler) Propose(c *fiber.Ctx) error {
	var req proposeReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	dealID, ok := validate.ID(req.DealID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "deal_id is required"})
	}
	if req.SellerToken != "" {
		if _, err := h.Deals.Authorize(dealID, req.SellerToken, domain.RoleSeller); err != nil {
			applog.Security(c, "propose.denied", map[string]any{"deal_id": dealID})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid seller token for this deal"})
		}
	}

	res, err := h.Nego.Propose(c.UserContext(), dealID)
	if err != nil {
		return negotiationError(c, "propose", err)
	}
	applog.Audit(c, "propose", map[string]any{
		"deal_id": dealID,
		"pending": res.PendingSeller,
		"no_zone": res.NoZone,
	})
	return c.JSON(res)
}

type respondReq struct {
	DealID  string `json:"deal_id"`
	OfferID string `json:"offer_id"`
	Role    string `json:"role"`
	Action  string `json:"action"`
}

func (h *NegotiationHandler) Respond(c *fiber.Ctx) error {
	var req respondReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	dealID, ok := validate.ID(req.DealID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "deal_id is required"})
	}
	offerID, ok := validate.ID(req.OfferID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "offer_id is required"})
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "role must be buyer or seller"})
	}
	action, ok := domain.ParseAction(req.Action)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "action must be accept or reject"})
	}

	res, err := h.Nego.Respond(dealID, offerID, role, action)
	if err != nil {
		return negotiationError(c, "respond", err)
	}
	applog.Audit(c, "respond", map[string]any{
		"deal_id": dealID,
		"offer":   offerID,
		"role":    role,
		"action":  action,
		"status":  res.DealStatus,
	})
	return c.JSON(res)
}

type updateMinReq struct {
	DealID string `json:"deal_id"`
	Token  string `json:"token"`
	NewMin int    `json:"new_min"`
}

func (h *NegotiationHandler) UpdateMin(c *fiber.Ctx) error {
	var req updateMinReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	dealID, ok := validate.ID(req.DealID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "deal_id is required"})
	}
	token, ok := validate.Token(req.Token)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing token"})
	}
	if _, err := h.Deals.Authorize(dealID, token, domain.RoleSeller); err != nil {
		applog.Security(c, "update_min.denied", map[string]any{"deal_id": dealID})
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid seller token for this deal"})
	}

	if err := h.Nego.AdjustSellerMin(dealID, req.NewMin); err != nil {
		return negotiationError(c, "update_min", err)
	}
	applog.Audit(c, "update_min", map[string]any{"deal_id": dealID, "new_min": req.NewMin})
	return c.JSON(fiber.Map{"ok": true})
}

func negotiationError(c *fiber.Ctx, action string, err error) error {
	switch {
	case errors.Is(err, services.ErrDealNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "deal not found"})
	case errors.Is(err, services.ErrOfferNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "offer not found"})
	case errors.Is(err, services.ErrBuyerNotReady):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "buyer terms are missing (buyer_max / buyer_initial_offer)"})
	case errors.Is(err, services.ErrInvalidMin):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "new_min must be above zero"})
	case errors.Is(err, services.ErrDealClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "deal is closed"})
	case errors.Is(err, repos.ErrStaleOffer):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "offer is no longer the current proposal"})
	default:
		applog.Error(c, action, err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "temporary failure, retry"})
	}
}
