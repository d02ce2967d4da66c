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

type DealHandler struct {
	Deals  *services.DealService
	Offers *repos.OfferRepo
	Auth   *services.AuthService
}

type createDealReq struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	PublicPrice   int    `json:"public_price"`
	ImageURL      string `json:"image_url"`
	SellerInitial int    `json:"seller_initial"`
	SellerMin     int    `json:"seller_min"`
	SellerUrgency string `json:"seller_urgency"`
}

func (h *DealHandler) Create(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
	}

	var req createDealReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	title, ok := validate.Title(req.Title)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid title"})
	}
	urgency, ok := domain.ParseUrgency(req.SellerUrgency)
	if !ok {
		urgency = domain.UrgencyMedium
	}
	if !validate.Price(req.PublicPrice) || !validate.Price(req.SellerInitial) || !validate.Price(req.SellerMin) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "prices must be above zero"})
	}

	pub, err := h.Deals.Create(u.ID, services.NewDeal{
		Title:         title,
		Description:   req.Description,
		PublicPrice:   req.PublicPrice,
		ImageURL:      req.ImageURL,
		SellerInitial: req.SellerInitial,
		SellerMin:     req.SellerMin,
		SellerUrgency: urgency,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidTerms) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "seller_min must not exceed seller_initial and all prices must be above zero"})
		}
		applog.Error(c, "deal.create", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not create deal"})
	}

	applog.Audit(c, "deal.create", map[string]any{"deal_id": pub.DealID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"deal_id":      pub.DealID,
		"seller_token": pub.SellerToken,
		"buyer_token":  pub.BuyerToken,
	})
}

func (h *DealHandler) View(c *fiber.Ctx) error {
	dealID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid deal id"})
	}
	token, ok := validate.Token(c.Query("token"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing token"})
	}

	snap, err := h.Deals.View(dealID, token, h.Offers)
	if err != nil {
		return dealError(c, "deal.view", err)
	}
	return c.JSON(snap)
}

type joinReq struct {
	Token        string `json:"token"`
	BuyerMax     int    `json:"buyer_max"`
	BuyerInitial int    `json:"buyer_initial_offer"`
	BuyerUrgency string `json:"buyer_urgency"`
}

func (h *DealHandler) Join(c *fiber.Ctx) error {
	dealID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid deal id"})
	}
	var req joinReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	token, ok := validate.Token(req.Token)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing token"})
	}
	urgency, ok := domain.ParseUrgency(req.BuyerUrgency)
	if !ok {
		urgency = domain.UrgencyMedium
	}
	if !validate.Price(req.BuyerMax) || !validate.Price(req.BuyerInitial) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "buyer_max and buyer_initial_offer must be above zero"})
	}

	if err := h.Deals.JoinBuyer(dealID, token, req.BuyerMax, req.BuyerInitial, urgency); err != nil {
		return dealError(c, "deal.join", err)
	}
	applog.Audit(c, "deal.join", map[string]any{"deal_id": dealID})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *DealHandler) Messages(c *fiber.Ctx) error {
	dealID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid deal id"})
	}
	token, ok := validate.Token(c.Query("token"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing token"})
	}

	msgs, err := h.Deals.Transcript(dealID, token)
	if err != nil {
		return dealError(c, "deal.messages", err)
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

// dealError maps service errors onto the HTTP taxonomy: validation 400,
// missing records 404, capability denial 403, everything else a retryable 500.
func dealError(c *fiber.Ctx, action string, err error) error {
	switch {
	case errors.Is(err, services.ErrDealNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "deal not found"})
	case errors.Is(err, services.ErrBadToken):
		applog.Security(c, action+".denied", nil)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid token for this deal"})
	case errors.Is(err, services.ErrDealClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "deal is closed"})
	case errors.Is(err, services.ErrInvalidTerms):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid terms"})
	default:
		applog.Error(c, action, err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "temporary failure, retry"})
	}
}
