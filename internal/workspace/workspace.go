// Package workspace is the editing session controller. It owns the deck model
// and the study engine and moves between the upload, processing, preview and
// manual steps as collaborators succeed or fail.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/conorfennell/cramly/internal/auth"
	"github.com/conorfennell/cramly/internal/deck"
	"github.com/conorfennell/cramly/internal/domain"
	"github.com/conorfennell/cramly/internal/export"
	"github.com/conorfennell/cramly/internal/llm"
	"github.com/conorfennell/cramly/internal/manual"
	"github.com/conorfennell/cramly/internal/study"
	"github.com/conorfennell/cramly/internal/sync"
)

// Step is the page-level stage of the session.
type Step string

const (
	StepUpload     Step = "upload"
	StepProcessing Step = "processing"
	StepPreview    Step = "preview"
	StepManual     Step = "manual"
)

// Mode is the preview sub-mode.
type Mode string

const (
	ModeEdit  Mode = "edit"
	ModeStudy Mode = "study"
)

var (
	ErrGenerationFailed = errors.New("workspace: generation failed")
	ErrExtractionFailed = errors.New("workspace: text extraction failed")
	ErrRefineFailed     = errors.New("workspace: refine failed")
	ErrLoadFailed       = errors.New("workspace: failed to load deck")
	ErrSaveFailed       = errors.New("workspace: failed to save deck")
	ErrExportFailed     = errors.New("workspace: export failed")
	ErrStudying         = errors.New("workspace: deck cannot be edited while studying")
	ErrNotPreviewing    = errors.New("workspace: no deck in preview")
	ErrUnknownCard      = errors.New("workspace: no card with that id")
)

// Generator produces flashcards from text.
type Generator interface {
	Generate(ctx context.Context, text string, count int) (llm.Generation, error)
}

// Refiner rewrites one card on instruction.
type Refiner interface {
	Refine(ctx context.Context, card domain.Pair, instruction string) (domain.Pair, error)
}

// Extractor turns files and repositories into text.
type Extractor interface {
	File(ctx context.Context, path string) (string, error)
	Repository(ctx context.Context, url string) (string, error)
}

// Saver persists a deck for a signed-in owner.
type Saver interface {
	Save(ctx context.Context, session auth.Session, deck domain.Deck) (sync.Result, error)
}

// Loader reads a stored deck.
type Loader interface {
	GetDeck(ctx context.Context, userID, deckID string) (domain.Deck, error)
}

// Exporter renders a deck to an external format.
type Exporter interface {
	Write(ctx context.Context, w io.Writer, f export.Format, deck domain.Deck) error
}

// Deps are the collaborators a Workspace talks to. Any may be nil if the
// corresponding action is never used.
type Deps struct {
	Generator Generator
	Refiner   Refiner
	Extractor Extractor
	Saver     Saver
	Loader    Loader
	Exporter  Exporter
	Logger    *slog.Logger

	DeckOptions  []deck.Option
	StudyOptions []study.Option
}

// Workspace is a single user's editing session. It is not safe for
// concurrent use.
type Workspace struct {
	deps   Deps
	deck   *deck.Model
	study  *study.Engine
	step   Step
	mode   Mode
	logger *slog.Logger
}

// New returns a workspace at the upload step.
func New(deps Deps) *Workspace {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		deps:   deps,
		deck:   deck.NewModel(deps.DeckOptions...),
		study:  study.NewEngine(deps.StudyOptions...),
		step:   StepUpload,
		mode:   ModeEdit,
		logger: logger,
	}
}

// Step returns the current step.
func (w *Workspace) Step() Step { return w.step }

// Mode returns the current preview mode.
func (w *Workspace) Mode() Mode { return w.mode }

// Deck returns the current deck contents.
func (w *Workspace) Deck() domain.Deck { return w.deck.Snapshot() }

// DisplayTitle returns the deck title or its placeholder.
func (w *Workspace) DisplayTitle() string { return w.deck.DisplayTitle() }

// Study returns the engine driving the current session.
func (w *Workspace) Study() *study.Engine { return w.study }

// GenerateFromText asks the generator for count cards drawn from text.
func (w *Workspace) GenerateFromText(ctx context.Context, text string, count int) error {
	w.step = StepProcessing
	return w.generate(ctx, text, count)
}

// GenerateFromFile extracts text from path and generates cards from it.
func (w *Workspace) GenerateFromFile(ctx context.Context, path string, count int) error {
	w.step = StepProcessing
	if w.deps.Extractor == nil {
		w.step = StepUpload
		return fmt.Errorf("%w: no extractor configured", ErrExtractionFailed)
	}
	text, err := w.deps.Extractor.File(ctx, path)
	if err != nil {
		w.step = StepUpload
		w.logger.Warn("text extraction failed", "path", path, "error", err)
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return w.generate(ctx, text, count)
}

// GenerateFromRepository syncs a git repository of notes and generates cards
// from its markdown and text files.
func (w *Workspace) GenerateFromRepository(ctx context.Context, url string, count int) error {
	w.step = StepProcessing
	if w.deps.Extractor == nil {
		w.step = StepUpload
		return fmt.Errorf("%w: no extractor configured", ErrExtractionFailed)
	}
	text, err := w.deps.Extractor.Repository(ctx, url)
	if err != nil {
		w.step = StepUpload
		w.logger.Warn("repository extraction failed", "url", url, "error", err)
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return w.generate(ctx, text, count)
}

func (w *Workspace) generate(ctx context.Context, text string, count int) error {
	if w.deps.Generator == nil {
		w.step = StepUpload
		return fmt.Errorf("%w: no generator configured", ErrGenerationFailed)
	}
	gen, err := w.deps.Generator.Generate(ctx, text, count)
	if err != nil {
		w.step = StepUpload
		w.logger.Warn("generation failed", "error", err)
		return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	w.deck.Reset()
	w.deck.Admit(gen.Pairs, gen.Title)
	w.logger.Info("cards generated", "count", len(gen.Pairs), "title", gen.Title)
	w.preview()
	return nil
}

// LoadDeck replaces the workspace deck with a stored one.
func (w *Workspace) LoadDeck(ctx context.Context, session auth.Session, id string) error {
	w.step = StepProcessing
	if err := session.Require(); err != nil {
		w.step = StepUpload
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	if w.deps.Loader == nil {
		w.step = StepUpload
		return fmt.Errorf("%w: no store configured", ErrLoadFailed)
	}
	d, err := w.deps.Loader.GetDeck(ctx, session.UserID, id)
	if err != nil {
		w.step = StepUpload
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	w.deck.Load(d)
	w.preview()
	return nil
}

// BeginManual moves to the manual entry step with a fresh draft.
func (w *Workspace) BeginManual() *manual.Draft {
	w.study.Stop()
	w.step = StepManual
	return manual.NewDraft(w.deck.NewID)
}

// CancelManual abandons manual entry.
func (w *Workspace) CancelManual() {
	if w.step == StepManual {
		w.step = StepUpload
	}
}

// FinishManual admits a completed draft and moves to preview in study mode.
// An invalid draft keeps the workspace in the manual step.
func (w *Workspace) FinishManual(d *manual.Draft) error {
	finished, err := d.Finish()
	if err != nil {
		return err
	}
	w.deck.Reset()
	w.deck.ReplaceAll(finished.Cards, finished.Title)
	w.preview()
	return nil
}

// preview enters the preview step, starting study when the deck allows it.
func (w *Workspace) preview() {
	w.step = StepPreview
	if err := w.EnterStudy(); err != nil {
		w.logger.Info("deck opened for editing", "reason", err)
		w.mode = ModeEdit
	}
}

// EnterStudy validates the deck and starts a new pass over a snapshot of it.
func (w *Workspace) EnterStudy() error {
	if w.step != StepPreview {
		return ErrNotPreviewing
	}
	if err := w.study.Start(w.deck.Cards()); err != nil {
		return err
	}
	w.mode = ModeStudy
	return nil
}

// EnterEdit leaves study mode. The study queue is discarded.
func (w *Workspace) EnterEdit() {
	w.study.Stop()
	w.mode = ModeEdit
}

func (w *Workspace) editable() error {
	if w.step != StepPreview {
		return ErrNotPreviewing
	}
	if w.mode == ModeStudy {
		return ErrStudying
	}
	return nil
}

// AddCard appends an empty card.
func (w *Workspace) AddCard() (domain.Card, error) {
	if err := w.editable(); err != nil {
		return domain.Card{}, err
	}
	return w.deck.AddCard(), nil
}

// UpdateCard edits one side of a card. A stale id is a no-op.
func (w *Workspace) UpdateCard(id string, field deck.Field, value string) error {
	if err := w.editable(); err != nil {
		return err
	}
	w.deck.UpdateCard(id, field, value)
	return nil
}

// DeleteCard removes a card. A stale id is a no-op.
func (w *Workspace) DeleteCard(id string) error {
	if err := w.editable(); err != nil {
		return err
	}
	w.deck.DeleteCard(id)
	return nil
}

// SetTitle renames the deck.
func (w *Workspace) SetTitle(title string) error {
	if err := w.editable(); err != nil {
		return err
	}
	w.deck.SetTitle(title)
	return nil
}

// Refine rewrites the card with id. On failure the card is untouched.
func (w *Workspace) Refine(ctx context.Context, id, instruction string) (domain.Card, error) {
	if err := w.editable(); err != nil {
		return domain.Card{}, err
	}
	card, ok := w.deck.Card(id)
	if !ok {
		return domain.Card{}, ErrUnknownCard
	}
	if w.deps.Refiner == nil {
		return domain.Card{}, fmt.Errorf("%w: no refiner configured", ErrRefineFailed)
	}
	pair, err := w.deps.Refiner.Refine(ctx, card.Pair(), instruction)
	if err != nil {
		w.logger.Warn("refine failed", "card", id, "error", err)
		return domain.Card{}, fmt.Errorf("%w: %w", ErrRefineFailed, err)
	}
	// The card may have been deleted while the request was in flight.
	if !w.deck.ApplyPair(id, pair) {
		return domain.Card{}, ErrUnknownCard
	}
	card, _ = w.deck.Card(id)
	return card, nil
}

// Save persists the deck. The returned deck id is recorded even when card
// synchronization fails, so a retry updates rather than re-creates.
func (w *Workspace) Save(ctx context.Context, session auth.Session) (sync.Result, error) {
	if w.step != StepPreview {
		return sync.Result{}, ErrNotPreviewing
	}
	if err := w.deck.Validate(); err != nil {
		return sync.Result{}, err
	}
	if w.deps.Saver == nil {
		return sync.Result{}, fmt.Errorf("%w: no store configured", ErrSaveFailed)
	}
	res, err := w.deps.Saver.Save(ctx, session, w.deck.Snapshot())
	if res.DeckID != "" {
		w.deck.SetID(res.DeckID)
	}
	if err != nil {
		if errors.Is(err, auth.ErrSignedOut) || errors.Is(err, sync.ErrSaveInProgress) {
			return res, err
		}
		return res, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return res, nil
}

// Export writes the deck in format f.
func (w *Workspace) Export(ctx context.Context, f export.Format, out io.Writer) error {
	if w.step != StepPreview {
		return ErrNotPreviewing
	}
	if err := w.deck.Validate(); err != nil {
		return err
	}
	if w.deps.Exporter == nil {
		return fmt.Errorf("%w: no exporter configured", ErrExportFailed)
	}
	if err := w.deps.Exporter.Write(ctx, out, f, w.deck.Snapshot()); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}

// Reset returns to the upload step with an empty deck.
func (w *Workspace) Reset() {
	w.study.Stop()
	w.deck.Reset()
	w.step = StepUpload
	w.mode = ModeEdit
}
