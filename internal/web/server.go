package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conorfennell/cramly/internal/auth"
	"github.com/conorfennell/cramly/internal/domain"
	"github.com/conorfennell/cramly/internal/export"
	"github.com/conorfennell/cramly/internal/llm"
	"github.com/conorfennell/cramly/internal/sync"
)

// UserHeader carries the owner identity on deck routes.
const UserHeader = "X-User-ID"

const sessionKey = "session"

// Generator produces flashcards from text.
type Generator interface {
	Generate(ctx context.Context, text string, count int) (llm.Generation, error)
}

// Refiner rewrites one card on instruction.
type Refiner interface {
	Refine(ctx context.Context, card domain.Pair, instruction string) (domain.Pair, error)
}

// Store is the read and delete side of the deck library.
type Store interface {
	GetDeck(ctx context.Context, userID, deckID string) (domain.Deck, error)
	ListDecks(ctx context.Context, userID string) ([]domain.DeckSummary, error)
	DeleteDeck(ctx context.Context, userID, deckID string) error
}

// Saver persists decks.
type Saver interface {
	Save(ctx context.Context, session auth.Session, deck domain.Deck) (sync.Result, error)
}

// Exporter renders decks to files.
type Exporter interface {
	Write(ctx context.Context, w io.Writer, f export.Format, deck domain.Deck) error
}

// Deps are the collaborators the API is served from.
type Deps struct {
	Generator Generator
	Refiner   Refiner
	Store     Store
	Saver     Saver
	Exporter  Exporter
	Logger    *slog.Logger
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	deps   Deps
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates and configures a new server.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		deps:   deps,
		router: gin.New(),
		logger: logger,
	}
	s.router.Use(gin.Recovery(), s.logRequests())
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	api := s.router.Group("/api")
	api.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	api.POST("/generate", s.handleGenerate)
	api.POST("/refine", s.handleRefine)

	decks := api.Group("/decks", requireOwner)
	decks.GET("", s.handleListDecks)
	decks.POST("", s.handleSaveDeck)
	decks.GET("/:id", s.handleGetDeck)
	decks.DELETE("/:id", s.handleDeleteDeck)
	decks.GET("/:id/export", s.handleExportDeck)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// requireOwner rejects requests without an owner identity and attaches the
// session for the handlers below it.
func requireOwner(c *gin.Context) {
	session := auth.Session{UserID: strings.TrimSpace(c.GetHeader(UserHeader))}
	if err := session.Require(); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Set(sessionKey, session)
	c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
	c.Next()
}

func sessionFrom(c *gin.Context) auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if session, ok := v.(auth.Session); ok {
			return session
		}
	}
	return auth.FromContext(c.Request.Context())
}
