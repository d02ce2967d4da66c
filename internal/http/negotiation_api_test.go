package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"dealmate/internal/http/handlers"
	"dealmate/internal/repos"
	"dealmate/internal/services"
)

// newTestApp wires the API against an in-memory store with fallback drafting.
func newTestApp(t *testing.T) (*fiber.App, *sqlx.DB) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	draftSvc := services.NewDraftService(nil, time.Second)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})
	app.Use(requestid.New())

	deps := handlers.NewDeps(db, authSvc, draftSvc)
	app.Post("/register", deps.AuthHandler.Register)
	app.Post("/login", deps.AuthHandler.Login)
	app.Post("/logout", deps.AuthHandler.Logout)
	api := app.Group("/api/v1")
	api.Post("/deals", handlers.RequireUser(authSvc), deps.DealHandler.Create)
	api.Get("/deals/:id", deps.DealHandler.View)
	api.Post("/deals/:id/join", deps.DealHandler.Join)
	api.Get("/deals/:id/messages", deps.DealHandler.Messages)
	api.Post("/propose", deps.NegotiationHandler.Propose)
	api.Post("/offers/respond", deps.NegotiationHandler.Respond)
	api.Post("/seller/update-min", deps.NegotiationHandler.UpdateMin)

	return app, db
}

func postJSON(t *testing.T, app *fiber.App, path string, body map[string]any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("bad json %q: %v", raw, err)
	}
	return out
}

func sidCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	return nil
}

// registerAndLogin returns a session cookie for a fresh seller account.
func registerAndLogin(t *testing.T, app *fiber.App) *http.Cookie {
	t.Helper()
	resp := postJSON(t, app, "/register", map[string]any{
		"email": "seller@dealmate.test", "name": "Sam", "password": "Passw0rd!",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: %d", resp.StatusCode)
	}
	resp = postJSON(t, app, "/login", map[string]any{
		"email": "seller@dealmate.test", "password": "Passw0rd!",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: %d", resp.StatusCode)
	}
	sid := sidCookie(resp)
	if sid == nil {
		t.Fatal("sid cookie missing after login")
	}
	return sid
}

// publishDeal creates the standard 800/900/750 fixture over HTTP and returns
// (dealID, sellerToken, buyerToken).
func publishDeal(t *testing.T, app *fiber.App, sid *http.Cookie) (string, string, string) {
	t.Helper()
	resp := postJSON(t, app, "/api/v1/deals", map[string]any{
		"title": "Game Boy Color", "description": "Handheld console",
		"public_price": 1000, "seller_initial": 950, "seller_min": 800,
		"seller_urgency": "medium",
	}, sid)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create deal: %d", resp.StatusCode)
	}
	body := decode(t, resp)
	dealID, _ := body["deal_id"].(string)
	sellerTok, _ := body["seller_token"].(string)
	buyerTok, _ := body["buyer_token"].(string)
	if dealID == "" || sellerTok == "" || buyerTok == "" {
		t.Fatalf("missing ids/tokens: %v", body)
	}

	resp = postJSON(t, app, "/api/v1/deals/"+dealID+"/join", map[string]any{
		"token": buyerTok, "buyer_max": 900, "buyer_initial_offer": 750, "buyer_urgency": "medium",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join: %d", resp.StatusCode)
	}
	return dealID, sellerTok, buyerTok
}

func TestAPI_FullNegotiationFlow(t *testing.T) {
	app, _ := newTestApp(t)
	sid := registerAndLogin(t, app)
	dealID, sellerTok, buyerTok := publishDeal(t, app, sid)

	// propose: zone exists, price 820, deal pends
	resp := postJSON(t, app, "/api/v1/propose", map[string]any{"deal_id": dealID, "seller_token": sellerTok})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("propose: %d", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["pending_seller"] != true || body["no_zone"] != false {
		t.Fatalf("propose body: %v", body)
	}
	if price, _ := body["proposed_price"].(float64); price != 820 {
		t.Fatalf("want 820, got %v", body["proposed_price"])
	}
	offerID, _ := body["offer_id"].(string)
	if offerID == "" {
		t.Fatalf("offer id missing: %v", body)
	}

	// both parties accept
	resp = postJSON(t, app, "/api/v1/offers/respond", map[string]any{
		"deal_id": dealID, "offer_id": offerID, "role": "buyer", "action": "accept",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("buyer accept: %d", resp.StatusCode)
	}
	resp = postJSON(t, app, "/api/v1/offers/respond", map[string]any{
		"deal_id": dealID, "offer_id": offerID, "role": "seller", "action": "accept",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seller accept: %d", resp.StatusCode)
	}
	body = decode(t, resp)
	if body["closed"] != true || body["deal_status"] != "accepted" {
		t.Fatalf("joint accept body: %v", body)
	}

	// transcript carries mediator messages, visible to the buyer token
	req := httptest.NewRequest("GET", "/api/v1/deals/"+dealID+"/messages?token="+buyerTok, nil)
	mresp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if mresp.StatusCode != http.StatusOK {
		t.Fatalf("messages: %d", mresp.StatusCode)
	}
	mbody := decode(t, mresp)
	msgs, _ := mbody["messages"].([]any)
	if len(msgs) < 3 {
		t.Fatalf("want proposal + responses + closing in transcript, got %d entries", len(msgs))
	}
}

func TestAPI_ValidationAndNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	sid := registerAndLogin(t, app)
	dealID, sellerTok, _ := publishDeal(t, app, sid)

	// invalid role
	resp := postJSON(t, app, "/api/v1/offers/respond", map[string]any{
		"deal_id": dealID, "offer_id": "01HZX5D9GPXYZ", "role": "mediator", "action": "accept",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad role expected 400, got %d", resp.StatusCode)
	}

	// invalid action
	resp = postJSON(t, app, "/api/v1/offers/respond", map[string]any{
		"deal_id": dealID, "offer_id": "01HZX5D9GPXYZ", "role": "buyer", "action": "maybe",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad action expected 400, got %d", resp.StatusCode)
	}

	// unknown offer
	resp = postJSON(t, app, "/api/v1/offers/respond", map[string]any{
		"deal_id": dealID, "offer_id": "01HZX5D9GPXYZ", "role": "buyer", "action": "accept",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown offer expected 404, got %d", resp.StatusCode)
	}

	// unknown deal
	resp = postJSON(t, app, "/api/v1/propose", map[string]any{"deal_id": "no-such-deal"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown deal expected 404, got %d", resp.StatusCode)
	}

	// update-min with non-positive value
	resp = postJSON(t, app, "/api/v1/seller/update-min", map[string]any{
		"deal_id": dealID, "token": sellerTok, "new_min": 0,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("new_min=0 expected 400, got %d", resp.StatusCode)
	}

	// missing deal_id
	resp = postJSON(t, app, "/api/v1/propose", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing deal_id expected 400, got %d", resp.StatusCode)
	}
}

func TestAPI_TokenCapability(t *testing.T) {
	app, _ := newTestApp(t)
	sid := registerAndLogin(t, app)
	dealID, sellerTok, buyerTok := publishDeal(t, app, sid)

	// a buyer token cannot adjust the seller minimum
	resp := postJSON(t, app, "/api/v1/seller/update-min", map[string]any{
		"deal_id": dealID, "token": buyerTok, "new_min": 780,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("buyer token on update-min expected 403, got %d", resp.StatusCode)
	}

	// a foreign seller token is refused on propose
	resp = postJSON(t, app, "/api/v1/propose", map[string]any{
		"deal_id": dealID, "seller_token": "someone-elses-token-value",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign token expected 403, got %d", resp.StatusCode)
	}

	// the real seller token works
	resp = postJSON(t, app, "/api/v1/seller/update-min", map[string]any{
		"deal_id": dealID, "token": sellerTok, "new_min": 780,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seller update-min: %d", resp.StatusCode)
	}
}

func TestAPI_DealCreationRequiresLogin(t *testing.T) {
	app, _ := newTestApp(t)
	resp := postJSON(t, app, "/api/v1/deals", map[string]any{
		"title": "NES", "public_price": 200, "seller_initial": 180, "seller_min": 150,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous deal creation expected 401, got %d", resp.StatusCode)
	}
}

func TestAPI_NoZonePropose(t *testing.T) {
	app, _ := newTestApp(t)
	sid := registerAndLogin(t, app)
	dealID, sellerTok, _ := publishDeal(t, app, sid)

	// floor above the buyer's limit
	resp := postJSON(t, app, "/api/v1/seller/update-min", map[string]any{
		"deal_id": dealID, "token": sellerTok, "new_min": 950,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update-min: %d", resp.StatusCode)
	}

	resp = postJSON(t, app, "/api/v1/propose", map[string]any{"deal_id": dealID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("propose: %d", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["no_zone"] != true || body["pending_seller"] != false {
		t.Fatalf("want no_zone, got %v", body)
	}
	if price, _ := body["proposed_price"].(float64); price != 950 {
		t.Fatalf("no-zone reported price: %v", body["proposed_price"])
	}
}
