package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/conorfennell/cramly/internal/auth"
	"github.com/conorfennell/cramly/internal/domain"
	"github.com/conorfennell/cramly/internal/export"
	"github.com/conorfennell/cramly/internal/llm"
	"github.com/conorfennell/cramly/internal/storage"
	"github.com/conorfennell/cramly/internal/sync"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGenerator struct {
	err   error
	limit int
}

func (f *fakeGenerator) Generate(ctx context.Context, text string, count int) (llm.Generation, error) {
	f.limit = count
	if f.err != nil {
		return llm.Generation{}, f.err
	}
	return llm.Generation{Title: "Cells", Pairs: []domain.Pair{{Front: "Q", Back: "A"}}}, nil
}

type fakeRefiner struct{}

func (fakeRefiner) Refine(ctx context.Context, card domain.Pair, instruction string) (domain.Pair, error) {
	return domain.Pair{Front: card.Front + " (" + instruction + ")", Back: card.Back}, nil
}

type fakeSaver struct {
	err     error
	session auth.Session
}

func (f *fakeSaver) Save(ctx context.Context, session auth.Session, d domain.Deck) (sync.Result, error) {
	f.session = session
	if err := domain.Validate(d.Cards); err != nil {
		return sync.Result{}, err
	}
	return sync.Result{DeckID: "deck-1", Created: d.ID == "", Inserted: len(d.Cards)}, f.err
}

func newTestServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewServer(Deps{
		Generator: &fakeGenerator{},
		Refiner:   fakeRefiner{},
		Store:     db,
		Saver:     sync.NewSaver(db),
		Exporter:  export.New(),
	}), db
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerate(t *testing.T) {
	gen := &fakeGenerator{}
	srv := NewServer(Deps{Generator: gen})

	testCases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "ok", body: `{"text":"cells are small","limit":5}`, status: http.StatusOK},
		{name: "missing text", body: `{"limit":5}`, status: http.StatusBadRequest},
		{name: "negative limit", body: `{"text":"x","limit":-1}`, status: http.StatusBadRequest},
		{name: "bad json", body: `{`, status: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/generate", "", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("Expected status %d, but got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}

	rec := do(t, srv, http.MethodPost, "/api/generate", "", `{"text":"cells","limit":7}`)
	var resp generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Title != "Cells" || len(resp.Flashcards) != 1 || gen.limit != 7 {
		t.Errorf("Unexpected response %+v (limit %d)", resp, gen.limit)
	}

	gen.err = errors.New("upstream down")
	if rec := do(t, srv, http.MethodPost, "/api/generate", "", `{"text":"cells"}`); rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 on generator failure, but got %d", rec.Code)
	}
}

func TestRefine(t *testing.T) {
	srv := NewServer(Deps{Refiner: fakeRefiner{}})
	rec := do(t, srv, http.MethodPost, "/api/refine", "", `{"card":{"front":"Cell?","back":"Unit"},"instruction":"simpler"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d: %s", rec.Code, rec.Body.String())
	}
	var pair domain.Pair
	json.Unmarshal(rec.Body.Bytes(), &pair)
	if pair.Front != "Cell? (simpler)" {
		t.Errorf("Unexpected refined card %+v", pair)
	}

	if rec := do(t, srv, http.MethodPost, "/api/refine", "", `{"instruction":"simpler"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a card, but got %d", rec.Code)
	}
}

func TestDeckRoutesRequireOwner(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/decks"},
		{http.MethodPost, "/api/decks"},
		{http.MethodGet, "/api/decks/x"},
		{http.MethodDelete, "/api/decks/x"},
		{http.MethodGet, "/api/decks/x/export"},
	} {
		if rec := do(t, srv, route.method, route.path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, but got %d", route.method, route.path, rec.Code)
		}
	}
}

func TestDeckLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/decks", "user-1",
		`{"title":"Bio","cards":[{"id":"c1","front":"Q1","back":"A1"},{"id":"c2","front":"Q2","back":"A2","status":"hard"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on save, but got %d: %s", rec.Code, rec.Body.String())
	}
	var saved saveResponse
	json.Unmarshal(rec.Body.Bytes(), &saved)
	if !saved.Created || saved.DeckID == "" || saved.Inserted != 2 {
		t.Fatalf("Unexpected save response %+v", saved)
	}

	rec = do(t, srv, http.MethodGet, "/api/decks", "user-1", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), saved.DeckID) {
		t.Errorf("Expected the deck in the listing, but got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, srv, http.MethodGet, "/api/decks", "user-2", "")
	if strings.Contains(rec.Body.String(), saved.DeckID) {
		t.Error("Expected other users not to see the deck")
	}

	rec = do(t, srv, http.MethodGet, "/api/decks/"+saved.DeckID, "user-1", "")
	var deck domain.Deck
	json.Unmarshal(rec.Body.Bytes(), &deck)
	if len(deck.Cards) != 2 || deck.Cards[1].Status != domain.Hard {
		t.Errorf("Unexpected deck %+v", deck)
	}

	rec = do(t, srv, http.MethodGet, "/api/decks/"+saved.DeckID+"/export?format=csv", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on export, but got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="Bio.csv"` {
		t.Errorf("Unexpected Content-Disposition %q", got)
	}
	if rec.Body.String() != "Q1,A1\nQ2,A2\n" {
		t.Errorf("Unexpected csv %q", rec.Body.String())
	}

	if rec := do(t, srv, http.MethodGet, "/api/decks/"+saved.DeckID+"/export?format=pdf", "user-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown format, but got %d", rec.Code)
	}

	if rec := do(t, srv, http.MethodDelete, "/api/decks/"+saved.DeckID, "user-1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 on delete, but got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/decks/"+saved.DeckID, "user-1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, but got %d", rec.Code)
	}
}

func TestSaveReportsIncompleteCard(t *testing.T) {
	saver := &fakeSaver{}
	srv := NewServer(Deps{Saver: saver})
	rec := do(t, srv, http.MethodPost, "/api/decks", "user-1",
		`{"title":"Bio","cards":[{"id":"c1","front":"Q1","back":"A1"},{"id":"c2","front":"Q2","back":" "}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, but got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Position int `json:"position"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Position != 2 {
		t.Errorf("Expected position 2, but got %d", body.Position)
	}
	if saver.session.UserID != "user-1" {
		t.Errorf("Expected the saver to receive the owner session, but got %+v", saver.session)
	}
}

func TestSaveRejectsBadCardIDs(t *testing.T) {
	srv, db := newTestServer(t)

	testCases := []struct {
		name     string
		body     string
		position int
	}{
		{name: "missing id", body: `{"title":"Bio","cards":[{"front":"Q","back":"A"}]}`, position: 1},
		{name: "duplicate id", body: `{"title":"Bio","cards":[{"id":"x","front":"Q1","back":"A1"},{"id":"x","front":"Q2","back":"A2"}]}`, position: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/decks", "user-1", tc.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("Expected 422, but got %d: %s", rec.Code, rec.Body.String())
			}
			var body struct {
				Position int `json:"position"`
			}
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body.Position != tc.position {
				t.Errorf("Expected position %d, but got %d", tc.position, body.Position)
			}
		})
	}

	decks, err := db.ListDecks(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(decks) != 0 {
		t.Errorf("Expected no decks to be stored, but got %+v", decks)
	}
}

func TestSaveConflict(t *testing.T) {
	srv := NewServer(Deps{Saver: &fakeSaver{err: sync.ErrSaveInProgress}})
	rec := do(t, srv, http.MethodPost, "/api/decks", "user-1", `{"title":"Bio","cards":[{"id":"c1","front":"Q","back":"A"}]}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409, but got %d", rec.Code)
	}
}
