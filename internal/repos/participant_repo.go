package repos

import (
	"dealmate/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ParticipantRepo struct{ db *sqlx.DB }

func NewParticipantRepo(db *sqlx.DB) *ParticipantRepo { return &ParticipantRepo{db: db} }

func (r *ParticipantRepo) ByToken(token string) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.Get(&p, `SELECT token,deal_id,role FROM deal_participants WHERE token=?`, token)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
