package handlers

import (
	"dealmate/internal/repos"
	"dealmate/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	AuthHandler        *AuthHandler
	DealHandler        *DealHandler
	NegotiationHandler *NegotiationHandler
}

func NewDeps(db *sqlx.DB, auth *services.AuthService, draft *services.DraftService) *Deps {
	dealRepo := repos.NewDealRepo(db)
	termsRepo := repos.NewTermsRepo(db)
	offerRepo := repos.NewOfferRepo(db)
	msgRepo := repos.NewMessageRepo(db)
	partRepo := repos.NewParticipantRepo(db)

	dealSvc := services.NewDealService(dealRepo, termsRepo, partRepo, msgRepo)
	negoSvc := services.NewNegotiationService(dealRepo, termsRepo, offerRepo, msgRepo, draft)

	return &Deps{
		AuthHandler:        &AuthHandler{Auth: auth},
		DealHandler:        &DealHandler{Deals: dealSvc, Offers: offerRepo, Auth: auth},
		NegotiationHandler: &NegotiationHandler{Nego: negoSvc, Deals: dealSvc},
	}
}
