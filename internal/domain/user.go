package domain

// User is a seller account. Buyers never register; they act through a
// participant token.
type User struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Hash  string `db:"password_hash"`
}
