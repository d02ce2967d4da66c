package repos

import (
	"dealmate/internal/domain"

	"github.com/jmoiron/sqlx"
)

type MessageRepo struct{ db *sqlx.DB }

func NewMessageRepo(db *sqlx.DB) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) Append(m domain.Message) error {
	_, err := r.db.Exec(`INSERT INTO messages(id,deal_id,sender_role,content) VALUES(?,?,?,?)`,
		m.ID, m.DealID, m.SenderRole, m.Content)
	return err
}

// ListByDeal returns the transcript oldest first. Message ids are ulids, so
// id order is creation order.
func (r *MessageRepo) ListByDeal(dealID string) ([]domain.Message, error) {
	var out []domain.Message
	err := r.db.Select(&out, `
	  SELECT id,deal_id,sender_role,content,created_at
	  FROM messages WHERE deal_id=? ORDER BY id ASC`, dealID)
	return out, err
}

// Tail returns up to n of the newest entries, oldest first, for the mediator
// prompt context.
func (r *MessageRepo) Tail(dealID string, n int) ([]domain.Message, error) {
	if n <= 0 {
		n = 10
	}
	var rows []domain.Message
	err := r.db.Select(&rows, `
	  SELECT id,deal_id,sender_role,content,created_at
	  FROM messages WHERE deal_id=? ORDER BY id DESC LIMIT ?`, dealID, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
