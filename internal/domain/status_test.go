package domain_test

import (
	"testing"

	"dealmate/internal/domain"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to domain.DealStatus
		ok       bool
	}{
		{domain.StatusActive, domain.StatusPendingSeller, true},
		{domain.StatusActive, domain.StatusActive, true},
		{domain.StatusActive, domain.StatusAccepted, false},
		{domain.StatusPendingSeller, domain.StatusAccepted, true},
		{domain.StatusPendingSeller, domain.StatusActive, true},
		{domain.StatusPendingSeller, domain.StatusRejected, true},
		{domain.StatusPendingSeller, domain.StatusPendingSeller, true},
		{domain.StatusAccepted, domain.StatusActive, false},
		{domain.StatusAccepted, domain.StatusPendingSeller, false},
		{domain.StatusRejected, domain.StatusActive, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: want %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	if domain.StatusActive.Terminal() || domain.StatusPendingSeller.Terminal() {
		t.Fatal("open states must not be terminal")
	}
	if !domain.StatusAccepted.Terminal() || !domain.StatusRejected.Terminal() {
		t.Fatal("accepted and rejected must be terminal")
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	if _, ok := domain.ParseStatus("open"); ok {
		t.Fatal("unknown status must be rejected")
	}
	if s, ok := domain.ParseStatus("pending_seller"); !ok || s != domain.StatusPendingSeller {
		t.Fatalf("want pending_seller, got %q ok=%v", s, ok)
	}
}

func TestUrgencyWeights(t *testing.T) {
	if domain.UrgencyLow.Weight() != 0.3 || domain.UrgencyMedium.Weight() != 0.5 || domain.UrgencyHigh.Weight() != 0.7 {
		t.Fatal("urgency weights changed")
	}
	// unknown values fall back to medium
	if domain.Urgency("panic").Weight() != 0.5 {
		t.Fatal("unknown urgency must weigh as medium")
	}
}

func TestOfferLive(t *testing.T) {
	accept, reject := domain.ActionAccept, domain.ActionReject

	if !(domain.Offer{}).Live() {
		t.Fatal("fresh offer must be live")
	}
	if !(domain.Offer{BuyerStatus: &accept}).Live() {
		t.Fatal("half-answered offer must stay live")
	}
	if (domain.Offer{BuyerStatus: &reject}).Live() {
		t.Fatal("rejected offer must not be live")
	}
	if (domain.Offer{BuyerStatus: &accept, SellerStatus: &accept}).Live() {
		t.Fatal("fully accepted offer must not be live")
	}
}
