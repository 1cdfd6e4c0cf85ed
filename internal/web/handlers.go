package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conorfennell/cramly/internal/domain"
	"github.com/conorfennell/cramly/internal/export"
	"github.com/conorfennell/cramly/internal/llm"
	"github.com/conorfennell/cramly/internal/storage"
	"github.com/conorfennell/cramly/internal/sync"
)

type generateRequest struct {
	Text  string `json:"text" binding:"required"`
	Limit int    `json:"limit" binding:"gte=0"`
}

type generateResponse struct {
	Title      string        `json:"title,omitempty"`
	Flashcards []domain.Pair `json:"flashcards"`
}

type refineRequest struct {
	Card        *domain.Pair `json:"card" binding:"required"`
	Instruction string       `json:"instruction" binding:"required"`
}

type saveResponse struct {
	DeckID   string `json:"deck_id,omitempty"`
	Created  bool   `json:"created"`
	Inserted int    `json:"inserted"`
	Upserted int    `json:"upserted"`
	Deleted  int    `json:"deleted"`
	Error    string `json:"error,omitempty"`
}

// handleGenerate turns pasted text into flashcards. Cards carry no ids; the
// client assigns its own.
func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing text"})
		return
	}
	if s.deps.Generator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation is not configured"})
		return
	}

	gen, err := s.deps.Generator.Generate(c.Request.Context(), req.Text, req.Limit)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyText) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing text"})
			return
		}
		s.logger.Error("generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate flashcards"})
		return
	}
	c.JSON(http.StatusOK, generateResponse{Title: gen.Title, Flashcards: gen.Pairs})
}

func (s *Server) handleRefine(c *gin.Context) {
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing card or instruction"})
		return
	}
	if s.deps.Refiner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refine is not configured"})
		return
	}

	refined, err := s.deps.Refiner.Refine(c.Request.Context(), *req.Card, req.Instruction)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyInstruction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing card or instruction"})
			return
		}
		s.logger.Error("refine failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refine card"})
		return
	}
	c.JSON(http.StatusOK, refined)
}

func (s *Server) handleListDecks(c *gin.Context) {
	session := sessionFrom(c)
	decks, err := s.deps.Store.ListDecks(c.Request.Context(), session.UserID)
	if err != nil {
		s.logger.Error("list decks failed", "user", session.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list decks"})
		return
	}
	if decks == nil {
		decks = []domain.DeckSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"decks": decks})
}

func (s *Server) handleGetDeck(c *gin.Context) {
	session := sessionFrom(c)
	deck, err := s.deps.Store.GetDeck(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		s.storeError(c, "load deck", err)
		return
	}
	c.JSON(http.StatusOK, deck)
}

func (s *Server) handleDeleteDeck(c *gin.Context) {
	session := sessionFrom(c)
	if err := s.deps.Store.DeleteDeck(c.Request.Context(), session.UserID, c.Param("id")); err != nil {
		s.storeError(c, "delete deck", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleSaveDeck creates or updates a deck and synchronizes its cards.
func (s *Server) handleSaveDeck(c *gin.Context) {
	var deck domain.Deck
	if err := c.ShouldBindJSON(&deck); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deck: " + err.Error()})
		return
	}

	res, err := s.deps.Saver.Save(c.Request.Context(), sessionFrom(c), deck)
	body := saveResponse{
		DeckID:   res.DeckID,
		Created:  res.Created,
		Inserted: res.Inserted,
		Upserted: res.Upserted,
		Deleted:  res.Deleted,
	}
	if err == nil {
		c.JSON(http.StatusOK, body)
		return
	}

	body.Error = err.Error()
	var incomplete *domain.IncompleteCardError
	var badID *domain.InvalidCardIDError
	switch {
	case errors.As(err, &incomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    fmt.Sprintf("Card %d is incomplete. Both sides must have text.", incomplete.Position),
			"position": incomplete.Position,
		})
	case errors.As(err, &badID):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "Invalid card: " + badID.Error(),
			"position": badID.Position,
		})
	case errors.Is(err, sync.ErrSaveInProgress):
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, body)
	default:
		s.logger.Error("save deck failed", "deck", res.DeckID, "error", err)
		c.JSON(http.StatusInternalServerError, body)
	}
}

func (s *Server) handleExportDeck(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatAnki)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session := sessionFrom(c)
	deck, err := s.deps.Store.GetDeck(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		s.storeError(c, "load deck", err)
		return
	}

	var buf bytes.Buffer
	if err := s.deps.Exporter.Write(c.Request.Context(), &buf, format, deck); err != nil {
		if errors.Is(err, domain.ErrIncompleteCard) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error("export failed", "deck", deck.ID, "format", format, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(deck.Title, format)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) storeError(c *gin.Context, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
		return
	}
	s.logger.Error(op+" failed", "deck", c.Param("id"), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + op})
}
