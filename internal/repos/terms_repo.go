package repos

import (
	"database/sql"

	"dealmate/internal/domain"

	"github.com/jmoiron/sqlx"
)

type TermsRepo struct{ db *sqlx.DB }

func NewTermsRepo(db *sqlx.DB) *TermsRepo { return &TermsRepo{db: db} }

func (r *TermsRepo) Get(dealID string) (*domain.Terms, error) {
	var t domain.Terms
	err := r.db.Get(&t, `
	  SELECT deal_id,seller_initial,seller_min,seller_min_current,seller_urgency,
	         buyer_max,buyer_initial_offer,buyer_urgency,COALESCE(updated_at,'') AS updated_at
	  FROM deal_terms WHERE deal_id=?`, dealID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SetBuyerTerms records or re-records the buyer's side. Re-submitting before
// close is allowed; the next propose simply works from the new numbers.
func (r *TermsRepo) SetBuyerTerms(dealID string, buyerMax, buyerInitial int, urgency domain.Urgency) error {
	_, err := r.db.Exec(`
	  UPDATE deal_terms
	  SET buyer_max=?,buyer_initial_offer=?,buyer_urgency=?,updated_at=CURRENT_TIMESTAMP
	  WHERE deal_id=?`, buyerMax, buyerInitial, urgency, dealID)
	return err
}

// AdjustSellerMin moves the adjustable floor, forces any non-terminal deal
// back to active and appends the transcript notice, all in one transaction.
// A propose in flight either sees the old state (and its offer is later
// treated as stale) or the new one; it never sees half of this write.
func (r *TermsRepo) AdjustSellerMin(dealID string, newMin int, notice domain.Message) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`UPDATE deal_terms SET seller_min_current=?,updated_at=CURRENT_TIMESTAMP WHERE deal_id=?`,
		newMin, dealID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.Exec(`UPDATE deals SET status=?,updated_at=CURRENT_TIMESTAMP
	  WHERE id=? AND status NOT IN (?,?)`,
		domain.StatusActive, dealID, domain.StatusAccepted, domain.StatusRejected); err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT INTO messages(id,deal_id,sender_role,content) VALUES(?,?,?,?)`,
		notice.ID, notice.DealID, notice.SenderRole, notice.Content); err != nil {
		return err
	}
	return tx.Commit()
}
