package repos

import (
	"dealmate/internal/domain"

	"github.com/jmoiron/sqlx"
)

type DealRepo struct{ db *sqlx.DB }

func NewDealRepo(db *sqlx.DB) *DealRepo { return &DealRepo{db: db} }

// CreateWithTerms inserts the deal, its terms row and both participant tokens
// in one transaction so a deal can never exist half-published.
func (r *DealRepo) CreateWithTerms(d *domain.Deal, t *domain.Terms, parts []domain.Participant) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO deals(id,status,product_title,product_description,product_price_public,product_image_url,owner_user_id)
	  VALUES(?,?,?,?,?,?,?)`,
		d.ID, d.Status, d.Title, d.Description, d.PublicPrice, d.ImageURL, d.OwnerID); err != nil {
		return err
	}
	if _, err := tx.Exec(`
	  INSERT INTO deal_terms(deal_id,seller_initial,seller_min,seller_min_current,seller_urgency,updated_at)
	  VALUES(?,?,?,?,?,CURRENT_TIMESTAMP)`,
		t.DealID, t.SellerInitial, t.SellerMin, t.SellerMinCurrent, t.SellerUrgency); err != nil {
		return err
	}
	for _, p := range parts {
		if _, err := tx.Exec(`INSERT INTO deal_participants(token,deal_id,role) VALUES(?,?,?)`,
			p.Token, p.DealID, p.Role); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *DealRepo) Get(id string) (*domain.Deal, error) {
	var d domain.Deal
	err := r.db.Get(&d, `
	  SELECT id,status,product_title,product_description,product_price_public,product_image_url,
	         owner_user_id,created_at,COALESCE(updated_at,'') AS updated_at
	  FROM deals WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Transition writes the new status only if the stored status still equals
// from. The rows-affected count tells the caller whether it won the write;
// a concurrent actor losing this compare-and-set must re-read and adapt.
func (r *DealRepo) Transition(id string, from, to domain.DealStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, nil
	}
	res, err := r.db.Exec(`UPDATE deals SET status=?,updated_at=CURRENT_TIMESTAMP WHERE id=? AND status=?`,
		to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
