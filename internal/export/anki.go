package export

import (
	"archive/zip"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/conorfennell/cramly/internal/domain"
	"github.com/conorfennell/cramly/internal/knol"
)

const (
	collectionFile = "collection.anki2"
	mediaFile      = "media"
	fieldSeparator = "\x1f"
	defaultDeckID  = 1
	defaultConfID  = 1
)

const ankiSchema = `
CREATE TABLE col (
    id integer primary key, crt integer not null, mod integer not null,
    scm integer not null, ver integer not null, dty integer not null,
    usn integer not null, ls integer not null, conf text not null,
    models text not null, decks text not null, dconf text not null, tags text not null
);
CREATE TABLE notes (
    id integer primary key, guid text not null, mid integer not null,
    mod integer not null, usn integer not null, tags text not null,
    flds text not null, sfld integer not null, csum integer not null,
    flags integer not null, data text not null
);
CREATE TABLE cards (
    id integer primary key, nid integer not null, did integer not null,
    ord integer not null, mod integer not null, usn integer not null,
    type integer not null, queue integer not null, due integer not null,
    ivl integer not null, factor integer not null, reps integer not null,
    lapses integer not null, left integer not null, odue integer not null,
    odid integer not null, flags integer not null, data text not null
);
CREATE TABLE revlog (
    id integer primary key, cid integer not null, usn integer not null,
    ease integer not null, ivl integer not null, lastIvl integer not null,
    factor integer not null, time integer not null, type integer not null
);
CREATE TABLE graves (usn integer not null, oid integer not null, type integer not null);
CREATE INDEX ix_notes_usn ON notes (usn);
CREATE INDEX ix_cards_usn ON cards (usn);
CREATE INDEX ix_revlog_usn ON revlog (usn);
CREATE INDEX ix_cards_nid ON cards (nid);
CREATE INDEX ix_cards_sched ON cards (did, queue, due);
CREATE INDEX ix_revlog_cid ON revlog (cid);
CREATE INDEX ix_notes_csum ON notes (csum);
`

const cardCSS = `.card {
 font-family: arial;
 font-size: 20px;
 text-align: center;
 color: black;
 background-color: white;
}`

// writeAnki builds an Anki package: a zip holding a collection database with
// one basic front/back note and card per flashcard, and an empty media map.
func (e *Exporter) writeAnki(ctx context.Context, w io.Writer, name string, cards []domain.Card) error {
	dir, err := os.MkdirTemp("", "cramly-apkg-")
	if err != nil {
		return fmt.Errorf("export anki: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, collectionFile)
	if err := e.buildCollection(ctx, path, name, cards); err != nil {
		return fmt.Errorf("export anki: %w", err)
	}
	collection, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("export anki: %w", err)
	}

	zw := zip.NewWriter(w)
	entry, err := zw.Create(collectionFile)
	if err != nil {
		return fmt.Errorf("export anki: %w", err)
	}
	if _, err := entry.Write(collection); err != nil {
		return fmt.Errorf("export anki: %w", err)
	}
	entry, err = zw.Create(mediaFile)
	if err != nil {
		return fmt.Errorf("export anki: %w", err)
	}
	if _, err := io.WriteString(entry, "{}"); err != nil {
		return fmt.Errorf("export anki: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("export anki: %w", err)
	}
	return nil
}

func (e *Exporter) buildCollection(ctx context.Context, path, name string, cards []domain.Card) error {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, ankiSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	now := e.now()
	nowMillis := now.UnixMilli()
	nowSecs := now.Unix()
	modelID := nowMillis
	deckID := nowMillis + 1

	models, decks, dconf, conf, err := collectionJSON(name, modelID, deckID, nowSecs)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO col (id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		 VALUES (1, ?, ?, ?, 11, 0, 0, 0, ?, ?, ?, ?, '{}')`,
		nowSecs, nowMillis, nowMillis, conf, models, decks, dconf)
	if err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}

	for i, c := range cards {
		noteID := nowMillis + int64(i)
		cardID := nowMillis + int64(i)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
			 VALUES (?, ?, ?, ?, -1, '', ?, ?, ?, 0, '')`,
			noteID, noteGUID(c), modelID, nowSecs, c.Front+fieldSeparator+c.Back, c.Front, checksum(c.Front))
		if err != nil {
			return fmt.Errorf("insert note %d: %w", i+1, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data)
			 VALUES (?, ?, ?, 0, ?, -1, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`,
			cardID, noteID, deckID, nowSecs, i+1)
		if err != nil {
			return fmt.Errorf("insert card %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

func collectionJSON(name string, modelID, deckID, mod int64) (models, decks, dconf, conf string, err error) {
	model := map[string]any{
		"id":        modelID,
		"name":      name,
		"type":      0,
		"mod":       mod,
		"usn":       -1,
		"sortf":     0,
		"did":       deckID,
		"tags":      []string{},
		"vers":      []any{},
		"css":       cardCSS,
		"latexPre":  "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}\n",
		"latexPost": "\\end{document}",
		"req":       []any{[]any{0, "all", []int{0}}},
		"flds": []map[string]any{
			{"name": "Front", "ord": 0, "sticky": false, "rtl": false, "font": "Arial", "size": 20, "media": []any{}},
			{"name": "Back", "ord": 1, "sticky": false, "rtl": false, "font": "Arial", "size": 20, "media": []any{}},
		},
		"tmpls": []map[string]any{{
			"name":  "Card 1",
			"ord":   0,
			"qfmt":  "{{Front}}",
			"afmt":  "{{FrontSide}}\n\n<hr id=\"answer\">\n\n{{Back}}",
			"did":   nil,
			"bqfmt": "",
			"bafmt": "",
		}},
	}
	deck := func(id int64, deckName string) map[string]any {
		return map[string]any{
			"id":        id,
			"name":      deckName,
			"desc":      "",
			"mod":       mod,
			"usn":       -1,
			"collapsed": false,
			"dyn":       0,
			"conf":      defaultConfID,
			"extendNew": 10,
			"extendRev": 50,
			"newToday":  []int{0, 0},
			"revToday":  []int{0, 0},
			"lrnToday":  []int{0, 0},
			"timeToday": []int{0, 0},
		}
	}
	options := map[string]any{
		"id":       defaultConfID,
		"name":     "Default",
		"mod":      0,
		"usn":      0,
		"maxTaken": 60,
		"timer":    0,
		"autoplay": true,
		"replayq":  true,
		"new":      map[string]any{"delays": []int{1, 10}, "ints": []int{1, 4, 7}, "initialFactor": 2500, "perDay": 20, "order": 1, "bury": true, "separate": true},
		"rev":      map[string]any{"perDay": 100, "ease4": 1.3, "fuzz": 0.05, "ivlFct": 1, "maxIvl": 36500, "bury": true, "minSpace": 1},
		"lapse":    map[string]any{"delays": []int{10}, "mult": 0, "minInt": 1, "leechFails": 8, "leechAction": 0},
	}
	colConf := map[string]any{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{deckID},
		"sortType":      "noteFld",
		"timeLim":       0,
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       deckID,
		"newSpread":     0,
		"dueCounts":     true,
		"curModel":      fmt.Sprint(modelID),
		"collapseTime":  1200,
	}

	encode := func(v any) string {
		if err != nil {
			return ""
		}
		var b []byte
		b, err = json.Marshal(v)
		return string(b)
	}
	models = encode(map[string]any{fmt.Sprint(modelID): model})
	decks = encode(map[string]any{
		fmt.Sprint(defaultDeckID): deck(defaultDeckID, "Default"),
		fmt.Sprint(deckID):        deck(deckID, name),
	})
	dconf = encode(map[string]any{fmt.Sprint(defaultConfID): options})
	conf = encode(colConf)
	return models, decks, dconf, conf, err
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// checksum is the integer form of the first 8 hex digits of the SHA-1 of the
// tag-stripped sort field, used by Anki for duplicate detection.
func checksum(field string) int64 {
	sum := sha1.Sum([]byte(strings.TrimSpace(htmlTag.ReplaceAllString(field, ""))))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}

// noteGUID is stable for a given front/back so re-imports update in place.
func noteGUID(c domain.Card) string {
	return knol.Hash(c.Pair())[:10]
}
