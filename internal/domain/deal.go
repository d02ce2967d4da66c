package domain

// DealStatus is the closed set of lifecycle states for a deal. Status is only
// ever written through a transition that the table below allows.
type DealStatus string

const (
	StatusActive        DealStatus = "active"
	StatusPendingSeller DealStatus = "pending_seller"
	StatusAccepted      DealStatus = "accepted"
	StatusRejected      DealStatus = "rejected"
)

// transitions lists the legal next states per current state. Self-transitions
// (idempotent no-ops) are included explicitly. accepted and rejected are
// absorbing.
var transitions = map[DealStatus][]DealStatus{
	StatusActive:        {StatusActive, StatusPendingSeller},
	StatusPendingSeller: {StatusPendingSeller, StatusActive, StatusAccepted, StatusRejected},
	StatusAccepted:      {},
	StatusRejected:      {},
}

func (s DealStatus) CanTransition(to DealStatus) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

func (s DealStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// ParseStatus maps a stored string onto the enum; unknown values are rejected
// rather than passed through.
func ParseStatus(s string) (DealStatus, bool) {
	switch DealStatus(s) {
	case StatusActive, StatusPendingSeller, StatusAccepted, StatusRejected:
		return DealStatus(s), true
	}
	return "", false
}

// Urgency expresses how eager a party is to close.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Weight returns the numeric pull an urgency level exerts on the counter-offer.
// Unknown values fall back to the medium weight.
func (u Urgency) Weight() float64 {
	switch u {
	case UrgencyLow:
		return 0.3
	case UrgencyHigh:
		return 0.7
	default:
		return 0.5
	}
}

func ParseUrgency(s string) (Urgency, bool) {
	switch Urgency(s) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return Urgency(s), true
	}
	return "", false
}

// Role identifies who acts or speaks on a deal.
type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleSeller   Role = "seller"
	RoleMediator Role = "mediator"
)

// ParseRole accepts only the two party roles; the mediator never responds to
// its own offers.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleBuyer, RoleSeller:
		return Role(s), true
	}
	return "", false
}

// Action is a party's answer to an offer.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionAccept, ActionReject:
		return Action(s), true
	}
	return "", false
}

// Deal is one negotiation session for a single item. Never physically deleted
// while a negotiation is active.
type Deal struct {
	ID          string     `db:"id"`
	Status      DealStatus `db:"status"`
	Title       string     `db:"product_title"`
	Description string     `db:"product_description"`
	PublicPrice int        `db:"product_price_public"`
	ImageURL    string     `db:"product_image_url"`
	OwnerID     string     `db:"owner_user_id"`
	CreatedAt   string     `db:"created_at"`
	UpdatedAt   string     `db:"updated_at"`
}

// Terms holds the numeric and urgency parameters bounding one deal. Exactly
// one row per deal. Buyer fields stay NULL until the buyer joins. All amounts
// are whole currency units.
type Terms struct {
	DealID           string   `db:"deal_id"`
	SellerInitial    int      `db:"seller_initial"`
	SellerMin        int      `db:"seller_min"`
	SellerMinCurrent int      `db:"seller_min_current"`
	SellerUrgency    Urgency  `db:"seller_urgency"`
	BuyerMax         *int     `db:"buyer_max"`
	BuyerInitial     *int     `db:"buyer_initial_offer"`
	BuyerUrgency     *Urgency `db:"buyer_urgency"`
	UpdatedAt        string   `db:"updated_at"`
}

// BuyerJoined reports whether the buyer has submitted terms yet.
func (t Terms) BuyerJoined() bool {
	return t.BuyerMax != nil && t.BuyerInitial != nil
}

// Offer is one proposed counter-offer awaiting independent acceptance from
// both parties. Rows are append-only; a resolved offer stays on record.
type Offer struct {
	ID           string  `db:"id"`
	DealID       string  `db:"deal_id"`
	Price        int     `db:"proposed_price"`
	Rationale    string  `db:"rationale"`
	BuyerStatus  *Action `db:"buyer_status"`
	SellerStatus *Action `db:"seller_status"`
	CreatedAt    string  `db:"created_at"`
}

// Live reports whether the offer is still awaiting at least one response and
// has not been rejected by either side.
func (o Offer) Live() bool {
	if o.BuyerStatus != nil && *o.BuyerStatus == ActionReject {
		return false
	}
	if o.SellerStatus != nil && *o.SellerStatus == ActionReject {
		return false
	}
	return o.BuyerStatus == nil || o.SellerStatus == nil
}

// Message is one transcript entry. Never mutated or deleted.
type Message struct {
	ID         string `db:"id"`
	DealID     string `db:"deal_id"`
	SenderRole Role   `db:"sender_role"`
	Content    string `db:"content"`
	CreatedAt  string `db:"created_at"`
}

// Participant binds an opaque capability token to one role on one deal.
type Participant struct {
	Token  string `db:"token"`
	DealID string `db:"deal_id"`
	Role   Role   `db:"role"`
}
