package services

import (
	"database/sql"
	"errors"

	"dealmate/internal/domain"
	"dealmate/internal/repos"

	"github.com/google/uuid"
)

var (
	ErrDealNotFound  = errors.New("deal not found")
	ErrBadToken      = errors.New("token does not grant access to this deal")
	ErrDealClosed    = errors.New("deal is closed")
	ErrInvalidTerms  = errors.New("invalid terms")
	ErrBuyerNotReady = errors.New("buyer terms are missing")
)

type DealService struct {
	Deals    *repos.DealRepo
	Terms    *repos.TermsRepo
	Parts    *repos.ParticipantRepo
	Messages *repos.MessageRepo
}

func NewDealService(deals *repos.DealRepo, terms *repos.TermsRepo, parts *repos.ParticipantRepo, msgs *repos.MessageRepo) *DealService {
	return &DealService{Deals: deals, Terms: terms, Parts: parts, Messages: msgs}
}

type NewDeal struct {
	Title         string
	Description   string
	PublicPrice   int
	ImageURL      string
	SellerInitial int
	SellerMin     int
	SellerUrgency domain.Urgency
}

type Published struct {
	DealID      string
	SellerToken string
	BuyerToken  string
}

// Create publishes a deal: the deal row, its terms (seller_min_current starts
// at seller_min) and one capability token per role, atomically.
func (s *DealService) Create(ownerID string, in NewDeal) (*Published, error) {
	if in.PublicPrice <= 0 || in.SellerInitial <= 0 || in.SellerMin <= 0 {
		return nil, ErrInvalidTerms
	}
	if in.SellerMin > in.SellerInitial {
		return nil, ErrInvalidTerms
	}

	dealID := uuid.NewString()
	pub := &Published{
		DealID:      dealID,
		SellerToken: uuid.NewString(),
		BuyerToken:  uuid.NewString(),
	}

	d := &domain.Deal{
		ID:          dealID,
		Status:      domain.StatusActive,
		Title:       in.Title,
		Description: in.Description,
		PublicPrice: in.PublicPrice,
		ImageURL:    in.ImageURL,
		OwnerID:     ownerID,
	}
	t := &domain.Terms{
		DealID:           dealID,
		SellerInitial:    in.SellerInitial,
		SellerMin:        in.SellerMin,
		SellerMinCurrent: in.SellerMin,
		SellerUrgency:    in.SellerUrgency,
	}
	parts := []domain.Participant{
		{Token: pub.SellerToken, DealID: dealID, Role: domain.RoleSeller},
		{Token: pub.BuyerToken, DealID: dealID, Role: domain.RoleBuyer},
	}

	if err := s.Deals.CreateWithTerms(d, t, parts); err != nil {
		return nil, err
	}
	return pub, nil
}

// Authorize resolves a capability token and checks it scopes the given deal.
// wantRole narrows further when non-empty.
func (s *DealService) Authorize(dealID, token string, wantRole domain.Role) (*domain.Participant, error) {
	p, err := s.Parts.ByToken(token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadToken
		}
		return nil, err
	}
	if p.DealID != dealID {
		return nil, ErrBadToken
	}
	if wantRole != "" && p.Role != wantRole {
		return nil, ErrBadToken
	}
	return p, nil
}

// JoinBuyer records the buyer's side of the terms. Allowed while the deal is
// not terminal; re-submitting replaces the previous values.
func (s *DealService) JoinBuyer(dealID, token string, buyerMax, buyerInitial int, urgency domain.Urgency) error {
	if buyerMax <= 0 || buyerInitial <= 0 {
		return ErrInvalidTerms
	}
	if _, err := s.Authorize(dealID, token, domain.RoleBuyer); err != nil {
		return err
	}
	d, err := s.Deals.Get(dealID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDealNotFound
		}
		return err
	}
	if d.Status.Terminal() {
		return ErrDealClosed
	}
	return s.Terms.SetBuyerTerms(dealID, buyerMax, buyerInitial, urgency)
}

// TermsView is the role-redacted projection of a deal's terms: neither party
// ever sees the other side's private bounds.
type TermsView struct {
	SellerInitial    *int            `json:"seller_initial,omitempty"`
	SellerMin        *int            `json:"seller_min,omitempty"`
	SellerMinCurrent *int            `json:"seller_min_current,omitempty"`
	SellerUrgency    *domain.Urgency `json:"seller_urgency,omitempty"`
	BuyerMax         *int            `json:"buyer_max,omitempty"`
	BuyerInitial     *int            `json:"buyer_initial_offer,omitempty"`
	BuyerUrgency     *domain.Urgency `json:"buyer_urgency,omitempty"`
	BuyerJoined      bool            `json:"buyer_joined"`
}

type Snapshot struct {
	Deal  *domain.Deal  `json:"deal"`
	Terms TermsView     `json:"terms"`
	Offer *domain.Offer `json:"offer,omitempty"`
}

// View returns the deal, the caller's redacted terms view, and the live offer
// if one is pending.
func (s *DealService) View(dealID, token string, offers *repos.OfferRepo) (*Snapshot, error) {
	p, err := s.Authorize(dealID, token, "")
	if err != nil {
		return nil, err
	}
	d, err := s.Deals.Get(dealID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	t, err := s.Terms.Get(dealID)
	if err != nil {
		return nil, err
	}

	view := TermsView{BuyerJoined: t.BuyerJoined()}
	switch p.Role {
	case domain.RoleSeller:
		view.SellerInitial = &t.SellerInitial
		view.SellerMin = &t.SellerMin
		view.SellerMinCurrent = &t.SellerMinCurrent
		view.SellerUrgency = &t.SellerUrgency
	case domain.RoleBuyer:
		view.BuyerMax = t.BuyerMax
		view.BuyerInitial = t.BuyerInitial
		view.BuyerUrgency = t.BuyerUrgency
	}

	snap := &Snapshot{Deal: d, Terms: view}
	if o, err := offers.CurrentZoneOffer(dealID); err == nil {
		snap.Offer = o
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return snap, nil
}

// Transcript lists the deal's messages oldest first for any token holder.
func (s *DealService) Transcript(dealID, token string) ([]domain.Message, error) {
	if _, err := s.Authorize(dealID, token, ""); err != nil {
		return nil, err
	}
	return s.Messages.ListByDeal(dealID)
}
