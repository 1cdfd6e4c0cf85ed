package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/cramly/internal/domain"
)

var sampleDeck = domain.Deck{
	Title: "Cell  Biology",
	Cards: []domain.Card{
		{ID: "1", Front: "What is a cell?", Back: "The basic unit of life"},
		{ID: "2", Front: `Say "hi", please`, Back: "line one\nline two"},
	},
}

func TestFileName(t *testing.T) {
	testCases := []struct {
		title    string
		format   Format
		expected string
	}{
		{title: "Cell  Biology", format: FormatAnki, expected: "Cell-Biology.apkg"},
		{title: "", format: FormatCSV, expected: "Cramly-Deck.csv"},
		{title: " Unit\t3 ", format: FormatXLSX, expected: "Unit-3.xlsx"},
	}
	for _, tc := range testCases {
		if got := FileName(tc.title, tc.format); got != tc.expected {
			t.Errorf("FileName(%q): expected %s, but got %s", tc.title, tc.expected, got)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for input, expected := range map[string]Format{"anki": FormatAnki, ".apkg": FormatAnki, "CSV": FormatCSV, "xlsx": FormatXLSX} {
		got, err := ParseFormat(input)
		if err != nil || got != expected {
			t.Errorf("ParseFormat(%q): expected %s, but got %s (%v)", input, expected, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, but got %v", err)
	}
}

func TestWriteRefusesIncompleteDeck(t *testing.T) {
	deck := domain.Deck{Cards: []domain.Card{{ID: "1", Front: "F", Back: "B"}, {ID: "2", Front: "F"}}}
	for _, f := range []Format{FormatAnki, FormatCSV, FormatXLSX} {
		var buf bytes.Buffer
		err := New().Write(context.Background(), &buf, f, deck)
		if !errors.Is(err, domain.ErrIncompleteCard) {
			t.Errorf("%s: expected ErrIncompleteCard, but got %v", f, err)
		}
		if buf.Len() != 0 {
			t.Errorf("%s: expected nothing written, but got %d bytes", f, buf.Len())
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := New().Write(context.Background(), &buf, FormatCSV, sampleDeck); err != nil {
		t.Fatalf("Write() returned an unexpected error: %v", err)
	}
	expected := "What is a cell?,The basic unit of life\n\"Say \"\"hi\"\", please\",\"line one\nline two\"\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, but got %q", expected, buf.String())
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := New().Write(context.Background(), &buf, FormatXLSX, sampleDeck); err != nil {
		t.Fatalf("Write() returned an unexpected error: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() returned an unexpected error: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() returned an unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, but got %d", len(rows))
	}
	if rows[0][0] != "Front" || rows[0][1] != "Back" {
		t.Errorf("Unexpected header %v", rows[0])
	}
	if rows[2][1] != "line one\nline two" {
		t.Errorf("Unexpected back %q", rows[2][1])
	}
}

func TestWriteAnki(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	var buf bytes.Buffer
	if err := New(WithClock(func() time.Time { return now })).Write(context.Background(), &buf, FormatAnki, sampleDeck); err != nil {
		t.Fatalf("Write() returned an unexpected error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Expected a zip archive: %v", err)
	}
	files := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = data
	}
	if string(files[mediaFile]) != "{}" {
		t.Errorf("Expected empty media map, but got %q", files[mediaFile])
	}

	path := filepath.Join(t.TempDir(), collectionFile)
	if err := os.WriteFile(path, files[collectionFile], 0o644); err != nil {
		t.Fatal(err)
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var flds []string
	if err := db.Select(&flds, `SELECT flds FROM notes ORDER BY id`); err != nil {
		t.Fatalf("query notes: %v", err)
	}
	if len(flds) != 2 || flds[0] != "What is a cell?\x1fThe basic unit of life" {
		t.Errorf("Unexpected note fields %q", flds)
	}

	var cardCount int
	if err := db.Get(&cardCount, `SELECT COUNT(*) FROM cards`); err != nil {
		t.Fatal(err)
	}
	if cardCount != 2 {
		t.Errorf("Expected 2 cards, but got %d", cardCount)
	}

	var decks string
	if err := db.Get(&decks, `SELECT decks FROM col`); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains([]byte(decks), []byte(`"name":"Cell  Biology"`)) {
		t.Errorf("Expected the deck name in the collection, but got %s", decks)
	}
}

func TestChecksumIgnoresMarkup(t *testing.T) {
	if checksum("<b>Cell</b>") != checksum("Cell") {
		t.Error("Expected the checksum to ignore html tags")
	}
	if checksum("Cell") == checksum("Atom") {
		t.Error("Expected different fields to differ")
	}
}
