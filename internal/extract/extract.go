// Package extract turns uploaded documents and note repositories into plain
// text suitable for flashcard generation.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/conorfennell/cramly/internal/gitsource"
)

// Kind names a supported source type.
type Kind string

const (
	KindText       Kind = "text"
	KindPDF        Kind = "pdf"
	KindDOCX       Kind = "docx"
	KindImage      Kind = "image"
	KindRepository Kind = "repository"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var (
	ErrUnsupported = errors.New("extract: unsupported file type")
	ErrNoText      = errors.New("extract: no text found")
)

// Error reports a failed extraction of a particular kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config controls external tooling used during extraction.
type Config struct {
	Tesseract string
	Language  string
}

// Extractor reads text from files and git repositories.
type Extractor struct {
	cfg    Config
	repos  *gitsource.Source
	logger *slog.Logger
}

// New returns an Extractor. repos may be nil when repository sources are
// not needed.
func New(cfg Config, repos *gitsource.Source, logger *slog.Logger) *Extractor {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, repos: repos, logger: logger}
}

var extensionKinds = map[string]Kind{
	".txt":      KindText,
	".md":       KindText,
	".markdown": KindText,
	".pdf":      KindPDF,
	".docx":     KindDOCX,
	".png":      KindImage,
	".jpg":      KindImage,
	".jpeg":     KindImage,
	".webp":     KindImage,
	".gif":      KindImage,
	".bmp":      KindImage,
	".tif":      KindImage,
	".tiff":     KindImage,
}

// Detect sniffs the file content, falling back to its extension.
func Detect(path string) (Kind, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	switch {
	case mtype.Is("application/pdf"):
		return KindPDF, nil
	case mtype.Is(docxMIME):
		return KindDOCX, nil
	case strings.HasPrefix(mtype.String(), "image/"):
		return KindImage, nil
	}
	if kind, ok := extensionKinds[strings.ToLower(filepath.Ext(path))]; ok {
		return kind, nil
	}
	if strings.HasPrefix(mtype.String(), "text/") {
		return KindText, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, mtype.String())
}

// File extracts text from the document at path.
func (e *Extractor) File(ctx context.Context, path string) (string, error) {
	kind, err := Detect(path)
	if err != nil {
		if errors.Is(err, ErrUnsupported) {
			return "", err
		}
		return "", &Error{Kind: KindText, Err: err}
	}

	var text string
	switch kind {
	case KindText:
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	case KindPDF:
		text, err = readPDF(path)
	case KindDOCX:
		text, err = readDOCX(path)
	case KindImage:
		text, err = e.recognize(ctx, path)
	}
	if err != nil {
		return "", &Error{Kind: kind, Err: err}
	}
	return finish(kind, text, e.logger.With("path", path))
}

// Repository syncs the repository at url and returns its notes as text.
func (e *Extractor) Repository(ctx context.Context, url string) (string, error) {
	if e.repos == nil {
		return "", &Error{Kind: KindRepository, Err: errors.New("repository sources are not configured")}
	}
	dir, err := e.repos.Sync(ctx, url)
	if err != nil {
		return "", &Error{Kind: KindRepository, Err: err}
	}
	text, err := gitsource.CollectText(dir)
	if err != nil {
		return "", &Error{Kind: KindRepository, Err: err}
	}
	return finish(KindRepository, text, e.logger.With("url", url))
}

func finish(kind Kind, text string, logger *slog.Logger) (string, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return "", &Error{Kind: kind, Err: ErrNoText}
	}
	logger.Debug("text extracted", "kind", kind, "chars", len(text))
	return text, nil
}
