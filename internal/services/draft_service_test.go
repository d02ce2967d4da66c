package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dealmate/internal/mediator"
	"dealmate/internal/services"
)

type stubDrafter struct {
	sug *mediator.Suggestion
	err error
}

func (s *stubDrafter) Suggest(ctx context.Context, in mediator.Input) (*mediator.Suggestion, error) {
	return s.sug, s.err
}

type hangingDrafter struct{}

func (hangingDrafter) Suggest(ctx context.Context, in mediator.Input) (*mediator.Suggestion, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func draftInput() mediator.Input {
	return mediator.Input{
		Title:       "Game Boy Color",
		TargetPrice: 820,
		FloorPrice:  800,
		CeilPrice:   900,
	}
}

func TestCompose_UsesValidSuggestion(t *testing.T) {
	svc := services.NewDraftService(&stubDrafter{sug: &mediator.Suggestion{
		OfferPrice:    820,
		Rationale:     "fair split",
		SellerMessage: "close at 820",
		BuyerMessage:  "820 is a fair deal",
	}}, time.Second)

	d := svc.Compose(context.Background(), draftInput())
	if d.Fallback {
		t.Fatal("valid suggestion must not fall back")
	}
	if d.Price != 820 || d.SellerMessage != "close at 820" {
		t.Fatalf("suggestion not carried through: %+v", d)
	}
}

func TestCompose_FallbackOnError(t *testing.T) {
	svc := services.NewDraftService(&stubDrafter{err: errors.New("capability down")}, time.Second)
	d := svc.Compose(context.Background(), draftInput())
	if !d.Fallback {
		t.Fatal("capability error must fall back")
	}
	if d.Price != 820 {
		t.Fatalf("fallback must carry the heuristic price, got %d", d.Price)
	}
	if !strings.Contains(d.SellerMessage, "820") || !strings.Contains(d.BuyerMessage, "820") {
		t.Fatalf("fallback wording must quote the price: %+v", d)
	}
}

func TestCompose_FallbackOnTimeout(t *testing.T) {
	svc := services.NewDraftService(hangingDrafter{}, 30*time.Millisecond)
	start := time.Now()
	d := svc.Compose(context.Background(), draftInput())
	if !d.Fallback || d.Price != 820 {
		t.Fatalf("timeout must fall back with the heuristic price: %+v", d)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("drafting blocked past its timeout")
	}
}

func TestCompose_DiscardsDivergentPrice(t *testing.T) {
	// a suggestion priced elsewhere in the zone would contradict the decided
	// number, so the wording is discarded
	svc := services.NewDraftService(&stubDrafter{sug: &mediator.Suggestion{
		OfferPrice:    850,
		Rationale:     "push higher",
		SellerMessage: "close at 850",
		BuyerMessage:  "850 works",
	}}, time.Second)

	d := svc.Compose(context.Background(), draftInput())
	if !d.Fallback || d.Price != 820 {
		t.Fatalf("divergent price must fall back to 820: %+v", d)
	}
}

func TestCompose_ClampsOutOfZonePrice(t *testing.T) {
	// 1200 clamps to the 900 ceiling, still disagrees with 820, so fallback;
	// an out-of-zone echo of the bound is never persisted either way
	svc := services.NewDraftService(&stubDrafter{sug: &mediator.Suggestion{
		OfferPrice:    1200,
		SellerMessage: "x",
		BuyerMessage:  "y",
	}}, time.Second)
	if d := svc.Compose(context.Background(), draftInput()); !d.Fallback || d.Price != 820 {
		t.Fatalf("out-of-zone suggestion must fall back: %+v", d)
	}

	// a clamp that lands exactly on the target is acceptable wording-wise
	in := draftInput()
	in.TargetPrice = 900
	svc = services.NewDraftService(&stubDrafter{sug: &mediator.Suggestion{
		OfferPrice:    1200,
		SellerMessage: "close at the top",
		BuyerMessage:  "top it is",
	}}, time.Second)
	if d := svc.Compose(context.Background(), in); d.Fallback || d.Price != 900 {
		t.Fatalf("clamped-to-target suggestion should be used: %+v", d)
	}
}

func TestCompose_FallbackWithoutDrafter(t *testing.T) {
	svc := services.NewDraftService(nil, time.Second)
	d := svc.Compose(context.Background(), draftInput())
	if !d.Fallback || d.Price != 820 {
		t.Fatalf("nil drafter must fall back deterministically: %+v", d)
	}
}

func TestCompose_FallbackOnEmptyMessages(t *testing.T) {
	svc := services.NewDraftService(&stubDrafter{sug: &mediator.Suggestion{OfferPrice: 820}}, time.Second)
	d := svc.Compose(context.Background(), draftInput())
	if !d.Fallback {
		t.Fatal("empty wording must fall back")
	}
}
