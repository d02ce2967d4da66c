package services

import (
	"math"

	"dealmate/internal/domain"
)

// ComputeOffer is the pure counter-offer heuristic. It returns the proposed
// price in whole currency units and whether a zone of agreement exists.
//
// A zone exists iff buyer_max >= seller_min_current. Inside the zone the
// midpoint is skewed toward whichever party is less eager, then blended toward
// the buyer's opening offer. Without a zone the returned price is
// informational only: the seller's current floor.
func ComputeOffer(t domain.Terms) (int, bool) {
	min := float64(t.SellerMinCurrent)
	if !t.BuyerJoined() || *t.BuyerMax < t.SellerMinCurrent {
		return t.SellerMinCurrent, false
	}
	max := float64(*t.BuyerMax)

	bw := domain.UrgencyMedium.Weight()
	if t.BuyerUrgency != nil {
		bw = t.BuyerUrgency.Weight()
	}
	sw := t.SellerUrgency.Weight()

	mid := (min + max) / 2
	skew := (bw - sw) * (max - min) * 0.25
	raw := clamp(mid+skew, min, max)
	blended := clamp(raw*0.7+float64(*t.BuyerInitial)*0.3, min, max)

	// min and max are whole units, so rounding cannot leave the zone
	return int(math.Round(blended)), true
}

// InZone reports whether price satisfies the hard postcondition for these
// terms. Callers must check it before persisting an offer; a violation is an
// internal consistency error, never something to store.
func InZone(t domain.Terms, price int) bool {
	if !t.BuyerJoined() {
		return false
	}
	return price >= t.SellerMinCurrent && price <= *t.BuyerMax
}

func clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}
