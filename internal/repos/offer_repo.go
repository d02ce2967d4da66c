package repos

import (
	"database/sql"
	"errors"

	"dealmate/internal/domain"

	"github.com/jmoiron/sqlx"
)

type OfferRepo struct{ db *sqlx.DB }

func NewOfferRepo(db *sqlx.DB) *OfferRepo { return &OfferRepo{db: db} }

const offerCols = `id,deal_id,proposed_price,rationale,buyer_status,seller_status,created_at`

func (r *OfferRepo) ByID(dealID, offerID string) (*domain.Offer, error) {
	var o domain.Offer
	err := r.db.Get(&o, `SELECT `+offerCols+` FROM offers WHERE id=? AND deal_id=?`, offerID, dealID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CurrentZoneOffer returns the newest offer on the deal that is still awaiting
// resolution, or sql.ErrNoRows when every offer is closed out.
func (r *OfferRepo) CurrentZoneOffer(dealID string) (*domain.Offer, error) {
	var rows []domain.Offer
	err := r.db.Select(&rows, `SELECT `+offerCols+` FROM offers WHERE deal_id=? ORDER BY id DESC LIMIT 5`, dealID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Live() {
			return &rows[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

// CreateProposed is the active -> pending_seller step: the status write is a
// compare-and-set, and the offer row plus its transcript message commit in the
// same transaction as the winning write. When the deal is no longer active the
// whole transaction rolls back and created=false is returned, so two racing
// propose calls can never both record an offer.
func (r *OfferRepo) CreateProposed(o *domain.Offer, msg domain.Message) (created bool, err error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`UPDATE deals SET status=?,updated_at=CURRENT_TIMESTAMP WHERE id=? AND status=?`,
		domain.StatusPendingSeller, o.DealID, domain.StatusActive)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, err
	} else if n == 0 {
		return false, nil
	}

	if _, err := tx.Exec(`INSERT INTO offers(id,deal_id,proposed_price,rationale) VALUES(?,?,?,?)`,
		o.ID, o.DealID, o.Price, o.Rationale); err != nil {
		return false, err
	}
	if _, err := tx.Exec(`INSERT INTO messages(id,deal_id,sender_role,content) VALUES(?,?,?,?)`,
		msg.ID, msg.DealID, msg.SenderRole, msg.Content); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// ResponseOutcome reports what the joint evaluation decided after one party
// answered an offer.
type ResponseOutcome struct {
	Offer      domain.Offer
	DealStatus domain.DealStatus
	Closed     bool // both sides accepted this offer
	Reopened   bool // a reject sent the deal back to active
}

var ErrStaleOffer = errors.New("offer no longer pending on this deal")

// RecordResponse sets one side's status, then re-reads the offer and evaluates
// the joint outcome inside the same transaction, so racing buyer and seller
// responses always observe a consistent pair of statuses. The deal status
// writes stay conditional on pending_seller: an offer made stale by a
// concurrent adjust-min is recorded but moves nothing, and a deal can only
// reach accepted through the one offer that flips it out of pending_seller.
func (r *OfferRepo) RecordResponse(dealID, offerID string, role domain.Role, action domain.Action,
	notice, closing domain.Message) (*ResponseOutcome, error) {

	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var o domain.Offer
	if err := tx.Get(&o, `SELECT `+offerCols+` FROM offers WHERE id=? AND deal_id=?`, offerID, dealID); err != nil {
		return nil, err
	}

	// only the current offer is answerable: a resolved offer, or one
	// superseded by a newer proposal after an adjust-min, is stale
	if !o.Live() {
		return nil, ErrStaleOffer
	}
	var newer int
	if err := tx.Get(&newer, `SELECT COUNT(*) FROM offers WHERE deal_id=? AND id>?`, dealID, offerID); err != nil {
		return nil, err
	}
	if newer > 0 {
		return nil, ErrStaleOffer
	}

	col := "buyer_status"
	if role == domain.RoleSeller {
		col = "seller_status"
	}
	if _, err := tx.Exec(`UPDATE offers SET `+col+`=? WHERE id=?`, action, offerID); err != nil {
		return nil, err
	}

	// re-read to evaluate the joint outcome
	if err := tx.Get(&o, `SELECT `+offerCols+` FROM offers WHERE id=?`, offerID); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`INSERT INTO messages(id,deal_id,sender_role,content) VALUES(?,?,?,?)`,
		notice.ID, notice.DealID, notice.SenderRole, notice.Content); err != nil {
		return nil, err
	}

	out := &ResponseOutcome{Offer: o, DealStatus: domain.StatusPendingSeller}

	bothAccept := o.BuyerStatus != nil && *o.BuyerStatus == domain.ActionAccept &&
		o.SellerStatus != nil && *o.SellerStatus == domain.ActionAccept
	anyReject := (o.BuyerStatus != nil && *o.BuyerStatus == domain.ActionReject) ||
		(o.SellerStatus != nil && *o.SellerStatus == domain.ActionReject)

	switch {
	case bothAccept:
		res, err := tx.Exec(`UPDATE deals SET status=?,updated_at=CURRENT_TIMESTAMP WHERE id=? AND status=?`,
			domain.StatusAccepted, dealID, domain.StatusPendingSeller)
		if err != nil {
			return nil, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, err
		} else if n == 1 {
			out.Closed = true
			out.DealStatus = domain.StatusAccepted
			if _, err := tx.Exec(`INSERT INTO messages(id,deal_id,sender_role,content) VALUES(?,?,?,?)`,
				closing.ID, closing.DealID, closing.SenderRole, closing.Content); err != nil {
				return nil, err
			}
		}
	case anyReject:
		// reopen; the rejected offer stays on record for history
		res, err := tx.Exec(`UPDATE deals SET status=?,updated_at=CURRENT_TIMESTAMP WHERE id=? AND status=?`,
			domain.StatusActive, dealID, domain.StatusPendingSeller)
		if err != nil {
			return nil, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, err
		} else if n == 1 {
			out.Reopened = true
			out.DealStatus = domain.StatusActive
		}
	}

	if !out.Closed && !out.Reopened {
		var raw string
		if err := tx.Get(&raw, `SELECT status FROM deals WHERE id=?`, dealID); err != nil {
			return nil, err
		}
		if s, ok := domain.ParseStatus(raw); ok {
			out.DealStatus = s
		}
	}

	return out, tx.Commit()
}
