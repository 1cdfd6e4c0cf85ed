package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Registers the postgres driver
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/cramly/internal/domain"
	"github.com/conorfennell/cramly/internal/sync"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrNotFound      = errors.New("storage: deck not found")
	ErrMalformedCard = errors.New("storage: malformed card row")
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer; pragmas are per connection.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

type deckRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	CardCount int       `db:"card_count"`
}

type cardRow struct {
	ID        string    `db:"id"`
	DeckID    string    `db:"deck_id"`
	Position  int       `db:"position"`
	Front     string    `db:"front"`
	Back      string    `db:"back"`
	Status    string    `db:"status"`
	UpdatedAt time.Time `db:"updated_at"`
}

// toCard converts a stored row into the strict Card shape.
func (r cardRow) toCard() (domain.Card, error) {
	if strings.TrimSpace(r.ID) == "" {
		return domain.Card{}, fmt.Errorf("%w: empty id in deck %s", ErrMalformedCard, r.DeckID)
	}
	var status domain.Rating
	if err := status.UnmarshalText([]byte(r.Status)); err != nil {
		return domain.Card{}, fmt.Errorf("%w: card %s: %v", ErrMalformedCard, r.ID, err)
	}
	return domain.Card{ID: r.ID, Front: r.Front, Back: r.Back, Status: status}, nil
}

// CreateDeck inserts a new deck owned by userID and returns its durable id.
func (db *DB) CreateDeck(ctx context.Context, userID, title string) (string, error) {
	id := uuid.NewString()
	now := db.now()
	_, err := db.conn.ExecContext(ctx, db.conn.Rebind(`
		INSERT INTO decks (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`), id, userID, title, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to create deck %q: %w", title, err)
	}
	return id, nil
}

// UpdateDeck sets the title and modification time of a deck owned by userID.
func (db *DB) UpdateDeck(ctx context.Context, userID, deckID, title string) error {
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(`
		UPDATE decks
		SET title = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`), title, db.now(), deckID, userID)
	if err != nil {
		return fmt.Errorf("failed to update deck %s: %w", deckID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected for deck %s: %w", deckID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, deckID)
	}
	return nil
}

// GetDeck loads a deck owned by userID with its cards in saved order.
func (db *DB) GetDeck(ctx context.Context, userID, deckID string) (domain.Deck, error) {
	var d deckRow
	err := db.conn.GetContext(ctx, &d, db.conn.Rebind(`
		SELECT id, user_id, title, created_at, updated_at
		FROM decks WHERE id = ? AND user_id = ?
	`), deckID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Deck{}, fmt.Errorf("%w: %s", ErrNotFound, deckID)
		}
		return domain.Deck{}, fmt.Errorf("failed to get deck %s: %w", deckID, err)
	}

	var rows []cardRow
	err = db.conn.SelectContext(ctx, &rows, db.conn.Rebind(`
		SELECT id, deck_id, position, front, back, status, updated_at
		FROM cards WHERE deck_id = ?
		ORDER BY position, id
	`), deckID)
	if err != nil {
		return domain.Deck{}, fmt.Errorf("failed to get cards for deck %s: %w", deckID, err)
	}

	deck := domain.Deck{ID: d.ID, Title: d.Title, Cards: make([]domain.Card, 0, len(rows))}
	for _, r := range rows {
		c, err := r.toCard()
		if err != nil {
			return domain.Deck{}, err
		}
		deck.Cards = append(deck.Cards, c)
	}
	return deck, nil
}

// ListDecks returns the decks of userID, newest first, with card counts.
func (db *DB) ListDecks(ctx context.Context, userID string) ([]domain.DeckSummary, error) {
	var rows []deckRow
	err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(`
		SELECT d.id, d.user_id, d.title, d.created_at, d.updated_at, COUNT(c.id) AS card_count
		FROM decks d
		LEFT JOIN cards c ON c.deck_id = d.id
		WHERE d.user_id = ?
		GROUP BY d.id, d.user_id, d.title, d.created_at, d.updated_at
		ORDER BY d.created_at DESC, d.id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks for user %s: %w", userID, err)
	}

	decks := make([]domain.DeckSummary, 0, len(rows))
	for _, r := range rows {
		decks = append(decks, domain.DeckSummary{
			ID:        r.ID,
			Title:     r.Title,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CardCount: r.CardCount,
		})
	}
	return decks, nil
}

// DeleteDeck removes a deck owned by userID together with its cards.
func (db *DB) DeleteDeck(ctx context.Context, userID, deckID string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete of deck %s: %w", deckID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM decks WHERE id = ? AND user_id = ?`), deckID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", deckID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected for deck %s: %w", deckID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, deckID)
	}
	// Foreign keys cascade on both drivers; the explicit delete covers
	// SQLite connections opened without the pragma.
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM cards WHERE deck_id = ?`), deckID); err != nil {
		return fmt.Errorf("failed to delete cards of deck %s: %w", deckID, err)
	}
	return tx.Commit()
}

// CardIDs returns the stored card ids of a deck.
func (db *DB) CardIDs(ctx context.Context, deckID string) ([]string, error) {
	var ids []string
	err := db.conn.SelectContext(ctx, &ids, db.conn.Rebind(`SELECT id FROM cards WHERE deck_id = ?`), deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get card ids for deck %s: %w", deckID, err)
	}
	return ids, nil
}

// ApplyPlan executes a synchronize plan for one deck in a single transaction:
// deletes first, then inserts, then upserts.
func (db *DB) ApplyPlan(ctx context.Context, deckID string, plan sync.Plan) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sync of deck %s: %w", deckID, err)
	}
	defer tx.Rollback()

	if len(plan.Delete) > 0 {
		query, args, err := sqlx.In(`DELETE FROM cards WHERE deck_id = ? AND id IN (?)`, deckID, plan.Delete)
		if err != nil {
			return fmt.Errorf("failed to build delete for deck %s: %w", deckID, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to delete cards of deck %s: %w", deckID, err)
		}
	}

	now := db.now()
	insert := tx.Rebind(`
		INSERT INTO cards (id, deck_id, position, front, back, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	for _, e := range plan.Insert {
		if _, err := tx.ExecContext(ctx, insert, e.Card.ID, deckID, e.Position, e.Card.Front, e.Card.Back, e.Card.Status.String(), now); err != nil {
			return fmt.Errorf("failed to insert card %s: %w", e.Card.ID, err)
		}
	}

	upsert := tx.Rebind(`
		INSERT INTO cards (id, deck_id, position, front, back, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			deck_id = excluded.deck_id,
			position = excluded.position,
			front = excluded.front,
			back = excluded.back,
			status = excluded.status,
			updated_at = excluded.updated_at
	`)
	for _, e := range plan.Upsert {
		if _, err := tx.ExecContext(ctx, upsert, e.Card.ID, deckID, e.Position, e.Card.Front, e.Card.Back, e.Card.Status.String(), now); err != nil {
			return fmt.Errorf("failed to upsert card %s: %w", e.Card.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync of deck %s: %w", deckID, err)
	}
	return nil
}
