package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dealmate/internal/domain"
	"dealmate/internal/mediator"
	"dealmate/internal/repos"

	"github.com/oklog/ulid/v2"
)

var (
	ErrOfferNotFound    = errors.New("offer not found")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidAction    = errors.New("invalid action")
	ErrInvalidMin       = errors.New("new minimum must be above zero")
	ErrPriceOutOfBounds = errors.New("internal: heuristic price outside zone")
)

// NegotiationService is the per-action coordinator: it runs the heuristic,
// consults drafting, writes the ledger and drives the state machine.
type NegotiationService struct {
	Deals    *repos.DealRepo
	Terms    *repos.TermsRepo
	Offers   *repos.OfferRepo
	Messages *repos.MessageRepo
	Draft    *DraftService
}

func NewNegotiationService(deals *repos.DealRepo, terms *repos.TermsRepo, offers *repos.OfferRepo,
	msgs *repos.MessageRepo, draft *DraftService) *NegotiationService {
	return &NegotiationService{Deals: deals, Terms: terms, Offers: offers, Messages: msgs, Draft: draft}
}

// ProposeResult reports what a propose call decided.
type ProposeResult struct {
	PendingSeller bool   `json:"pending_seller"`
	NoZone        bool   `json:"no_zone"`
	ProposedPrice *int   `json:"proposed_price,omitempty"`
	OfferID       string `json:"offer_id,omitempty"`
}

// Propose runs the full mediation step for a deal. It is idempotent while an
// offer is pending: repeated calls return the existing offer instead of
// creating a second one, and the loser of a concurrent propose race observes
// the winner's offer the same way.
func (s *NegotiationService) Propose(ctx context.Context, dealID string) (*ProposeResult, error) {
	d, err := s.Deals.Get(dealID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}

	switch d.Status {
	case domain.StatusActive:
		// fall through to mediation
	case domain.StatusPendingSeller:
		return s.pendingResult(dealID)
	default:
		return nil, ErrDealClosed
	}

	t, err := s.Terms.Get(dealID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	if !t.BuyerJoined() {
		return nil, ErrBuyerNotReady
	}

	price, hasZone := ComputeOffer(*t)
	if !hasZone {
		// informational only: no offer row, deal stays active
		notice := fmt.Sprintf(
			"No agreement zone at the moment: the seller's current floor is $%d and the buyer's limit sits below it. "+
				"Either side can adjust their terms to continue.", price)
		if err := s.Messages.Append(s.mediatorMsg(dealID, notice)); err != nil {
			return nil, err
		}
		p := price
		return &ProposeResult{NoZone: true, ProposedPrice: &p}, nil
	}

	// hard postcondition: never persist a price outside the zone
	if !InZone(*t, price) {
		return nil, ErrPriceOutOfBounds
	}

	tail, err := s.Messages.Tail(dealID, 10)
	if err != nil {
		return nil, err
	}
	in := mediator.Input{
		Title:         d.Title,
		Description:   d.Description,
		PublicPrice:   d.PublicPrice,
		SellerUrgency: string(t.SellerUrgency),
		BuyerUrgency:  string(domain.UrgencyMedium),
		TargetPrice:   price,
		FloorPrice:    t.SellerMinCurrent,
		CeilPrice:     *t.BuyerMax,
	}
	if t.BuyerUrgency != nil {
		in.BuyerUrgency = string(*t.BuyerUrgency)
	}
	for _, m := range tail {
		in.Transcript = append(in.Transcript, mediator.Turn{Sender: string(m.SenderRole), Content: m.Content})
	}
	draft := s.Draft.Compose(ctx, in)

	offer := &domain.Offer{
		ID:        ulid.Make().String(),
		DealID:    dealID,
		Price:     draft.Price,
		Rationale: draft.Rationale,
	}
	msg := s.mediatorMsg(dealID, fmt.Sprintf("Proposal: $%d\n\nTo the seller: %s\n\nTo the buyer: %s",
		draft.Price, draft.SellerMessage, draft.BuyerMessage))

	created, err := s.Offers.CreateProposed(offer, msg)
	if err != nil {
		return nil, err
	}
	if !created {
		// lost the active -> pending_seller race; surface the winner's offer
		return s.pendingResult(dealID)
	}

	p := draft.Price
	return &ProposeResult{PendingSeller: true, ProposedPrice: &p, OfferID: offer.ID}, nil
}

// pendingResult reports the already-pending offer on a deal. When the stored
// status says pending but no live offer exists (interrupted writer), the call
// degrades to a plain pending ack rather than failing.
func (s *NegotiationService) pendingResult(dealID string) (*ProposeResult, error) {
	o, err := s.Offers.CurrentZoneOffer(dealID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &ProposeResult{PendingSeller: true}, nil
		}
		return nil, err
	}
	p := o.Price
	return &ProposeResult{PendingSeller: true, ProposedPrice: &p, OfferID: o.ID}, nil
}

// RespondResult reports the joint outcome after one party answered.
type RespondResult struct {
	OK         bool              `json:"ok"`
	DealStatus domain.DealStatus `json:"deal_status"`
	Closed     bool              `json:"closed"`
}

// Respond records one party's accept/reject on an offer and evaluates the
// joint outcome atomically.
func (s *NegotiationService) Respond(dealID, offerID string, role domain.Role, action domain.Action) (*RespondResult, error) {
	notice := s.mediatorMsg(dealID, fmt.Sprintf("The %s accepted the proposal.", role))
	if action == domain.ActionReject {
		notice = s.mediatorMsg(dealID, fmt.Sprintf("The %s rejected the proposal. The negotiation is open again.", role))
	}
	closing := s.mediatorMsg(dealID, "Deal closed: both parties accepted the proposal.")

	out, err := s.Offers.RecordResponse(dealID, offerID, role, action, notice, closing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	return &RespondResult{OK: true, DealStatus: out.DealStatus, Closed: out.Closed}, nil
}

// AdjustSellerMin moves the seller's adjustable floor and re-opens the
// negotiation. Direction is unconstrained; only values above zero are legal.
func (s *NegotiationService) AdjustSellerMin(dealID string, newMin int) error {
	if newMin <= 0 {
		return ErrInvalidMin
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

	notice := s.mediatorMsg(dealID,
		"The seller adjusted their minimum. A new proposal can be requested to continue the negotiation.")
	if err := s.Terms.AdjustSellerMin(dealID, newMin, notice); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDealNotFound
		}
		return err
	}
	return nil
}

func (s *NegotiationService) mediatorMsg(dealID, content string) domain.Message {
	return domain.Message{
		ID:         ulid.Make().String(),
		DealID:     dealID,
		SenderRole: domain.RoleMediator,
		Content:    content,
	}
}
