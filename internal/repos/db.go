package repos

import (
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Seller accounts & sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Deals
CREATE TABLE IF NOT EXISTS deals(
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL DEFAULT 'active'
    CHECK (status IN ('active','pending_seller','accepted','rejected')),
  product_title TEXT NOT NULL,
  product_description TEXT NOT NULL DEFAULT '',
  product_price_public INTEGER NOT NULL CHECK (product_price_public > 0),
  product_image_url TEXT NOT NULL DEFAULT '',
  owner_user_id TEXT NOT NULL REFERENCES users(id),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_deals_owner ON deals(owner_user_id);

-- Terms: exactly one row per deal; buyer columns stay NULL until the buyer joins
CREATE TABLE IF NOT EXISTS deal_terms(
  deal_id TEXT PRIMARY KEY REFERENCES deals(id) ON DELETE RESTRICT,
  seller_initial INTEGER NOT NULL CHECK (seller_initial > 0),
  seller_min INTEGER NOT NULL CHECK (seller_min > 0),
  seller_min_current INTEGER NOT NULL CHECK (seller_min_current > 0),
  seller_urgency TEXT NOT NULL CHECK (seller_urgency IN ('low','medium','high')),
  buyer_max INTEGER NULL CHECK (buyer_max IS NULL OR buyer_max > 0),
  buyer_initial_offer INTEGER NULL CHECK (buyer_initial_offer IS NULL OR buyer_initial_offer > 0),
  buyer_urgency TEXT NULL CHECK (buyer_urgency IS NULL OR buyer_urgency IN ('low','medium','high')),
  updated_at TEXT
);

-- Offer ledger: append-only, resolved offers stay on record
CREATE TABLE IF NOT EXISTS offers(
  id TEXT PRIMARY KEY,
  deal_id TEXT NOT NULL REFERENCES deals(id) ON DELETE RESTRICT,
  proposed_price INTEGER NOT NULL CHECK (proposed_price > 0),
  rationale TEXT NOT NULL DEFAULT '',
  buyer_status TEXT NULL CHECK (buyer_status IS NULL OR buyer_status IN ('accept','reject')),
  seller_status TEXT NULL CHECK (seller_status IS NULL OR seller_status IN ('accept','reject')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_offers_deal ON offers(deal_id);

-- Transcript: append-only, never mutated
CREATE TABLE IF NOT EXISTS messages(
  id TEXT PRIMARY KEY,
  deal_id TEXT NOT NULL REFERENCES deals(id) ON DELETE RESTRICT,
  sender_role TEXT NOT NULL CHECK (sender_role IN ('buyer','seller','mediator')),
  content TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_deal ON messages(deal_id, created_at);

-- Capability tokens: one per (deal, role)
CREATE TABLE IF NOT EXISTS deal_participants(
  token TEXT PRIMARY KEY,
  deal_id TEXT NOT NULL REFERENCES deals(id) ON DELETE RESTRICT,
  role TEXT NOT NULL CHECK (role IN ('buyer','seller')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(deal_id, role)
);
`
	_, err := db.Exec(schema)
	return err
}
