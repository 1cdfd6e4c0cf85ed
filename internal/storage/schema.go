package storage

// The schema is written in the subset of SQL shared by SQLite and PostgreSQL.
const schema = `
-- The 'decks' table stores one row per saved deck, owned by a user.
CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS decks_user_created_idx ON decks (user_id, created_at);

-- The 'cards' table is keyed by the client-generated card id, so saves can
-- diff by identity across sessions.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
    position INTEGER NOT NULL DEFAULT 0,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS cards_deck_idx ON cards (deck_id);
`
