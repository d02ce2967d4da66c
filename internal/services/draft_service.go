package services

import (
	"context"
	"fmt"
	"time"

	applog "dealmate/internal/log"
	"dealmate/internal/mediator"
)

// Drafter is the external text-generation capability. The gemini client
// satisfies it; tests substitute stubs.
type Drafter interface {
	Suggest(ctx context.Context, in mediator.Input) (*mediator.Suggestion, error)
}

// Draft is the validated result of one drafting call. Price always equals the
// heuristic's number: the capability only ever contributes wording.
type Draft struct {
	Price         int
	Rationale     string
	SellerMessage string
	BuyerMessage  string
	Fallback      bool
}

// DraftService wraps the capability with a bounded timeout, price validation
// and a deterministic fallback, so the numeric protocol never waits on it and
// never trusts it.
type DraftService struct {
	Drafter Drafter
	Timeout time.Duration
}

func NewDraftService(d Drafter, timeout time.Duration) *DraftService {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &DraftService{Drafter: d, Timeout: timeout}
}

// Compose drafts the mediator wording for in.TargetPrice. It cannot fail: any
// capability error, timeout, malformed output or price disagreement degrades
// to the templated fallback built from the heuristic price.
func (s *DraftService) Compose(ctx context.Context, in mediator.Input) Draft {
	if s.Drafter == nil {
		return fallbackDraft(in.TargetPrice)
	}

	cctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	sug, err := s.Drafter.Suggest(cctx, in)
	if err != nil {
		applog.Error(nil, "mediator.suggest", err, nil)
		return fallbackDraft(in.TargetPrice)
	}
	if sug.SellerMessage == "" || sug.BuyerMessage == "" {
		return fallbackDraft(in.TargetPrice)
	}

	// Clamp the suggested price into the zone; if it still disagrees with the
	// decided price the wording would contradict the number, so discard it.
	price := sug.OfferPrice
	if price < in.FloorPrice {
		price = in.FloorPrice
	}
	if price > in.CeilPrice {
		price = in.CeilPrice
	}
	if price != in.TargetPrice {
		return fallbackDraft(in.TargetPrice)
	}

	return Draft{
		Price:         in.TargetPrice,
		Rationale:     sug.Rationale,
		SellerMessage: sug.SellerMessage,
		BuyerMessage:  sug.BuyerMessage,
	}
}

func fallbackDraft(price int) Draft {
	return Draft{
		Price:     price,
		Rationale: fmt.Sprintf("Midpoint proposal at $%d, balancing both parties' stated limits and urgency.", price),
		SellerMessage: fmt.Sprintf(
			"I propose closing at $%d. It is a balanced point that raises the chance of a sale without giving away margin.", price),
		BuyerMessage: fmt.Sprintf(
			"We can close at $%d. Considering the listed price and the item's condition, it is a fair deal.", price),
		Fallback: true,
	}
}
