// Package httpapi exposes chat and memory over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/bowerhall/notebook/internal/chat"
	"github.com/bowerhall/notebook/internal/conversation"
	"github.com/bowerhall/notebook/internal/logger"
	"github.com/bowerhall/notebook/internal/observability"
)

type Chatter interface {
	Reply(ctx context.Context, userID, sourceID, message string) (*chat.Reply, error)
	History(ctx context.Context, userID, sourceID string) ([]conversation.Message, error)
}

type Config struct {
	JWTSecret   string
	CORSOrigins []string
}

type Server struct {
	chat     Chatter
	facts    chat.FactReader
	metrics  *observability.Metrics
	auth     *Authenticator
	origins  []string
	validate *validator.Validate
}

func New(cfg Config, chatter Chatter, facts chat.FactReader, metrics *observability.Metrics) *Server {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return &Server{
		chat:     chatter,
		facts:    facts,
		metrics:  metrics,
		auth:     NewAuthenticator(cfg.JWTSecret),
		origins:  origins,
		validate: validator.New(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/metrics", s.metrics.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Post("/chat/{sourceId}", s.handleCreateMessage)
			r.Get("/chat/{sourceId}", s.handleGetChats)
			r.Get("/memory/facts", s.handleGetFacts)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Server is running"))
}

type createMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

type createMessageResponse struct {
	Success  bool                   `json:"success"`
	Message  string                 `json:"message"`
	Response string                 `json:"response"`
	Messages []conversation.Message `json:"messages"`
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := UserID(r.Context())
	sourceID := chi.URLParam(r, "sourceId")

	var req createMessageRequest
	if err := decodeJSON(r, &req); err != nil || s.validate.Struct(req) != nil || sourceID == "" {
		respondError(w, http.StatusBadRequest, "No sourceId or message")
		return
	}

	reply, err := s.chat.Reply(r.Context(), userID, sourceID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidRequest) {
			respondError(w, http.StatusBadRequest, "No sourceId or message")
			return
		}
		logger.Error("chat failed", "user", userID, "source", sourceID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal error while chatting")
		return
	}

	logger.Info("chat answered", "user", userID, "source", sourceID, "memory", reply.Decision, "duration", time.Since(start))

	respondJSON(w, http.StatusOK, createMessageResponse{
		Success:  true,
		Message:  "Received response successfully",
		Response: reply.Response,
		Messages: reply.Messages,
	})
}

type chatsResponse struct {
	Success  bool                   `json:"success"`
	Messages []conversation.Message `json:"messages"`
	Message  string                 `json:"message"`
}

func (s *Server) handleGetChats(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	sourceID := chi.URLParam(r, "sourceId")

	messages, err := s.chat.History(r.Context(), userID, sourceID)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidRequest) {
			respondError(w, http.StatusBadRequest, "No sourceId")
			return
		}
		logger.Error("chat history failed", "user", userID, "source", sourceID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal error while fetching chats")
		return
	}

	message := "Messages fetched"
	if len(messages) == 0 {
		message = "No message in chat"
	}

	respondJSON(w, http.StatusOK, chatsResponse{Success: true, Messages: messages, Message: message})
}

type factsResponse struct {
	Success bool     `json:"success"`
	Facts   []string `json:"facts"`
}

func (s *Server) handleGetFacts(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	facts, err := s.facts.Facts(r.Context(), userID)
	if err != nil {
		logger.Error("fact read failed", "user", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal error while fetching facts")
		return
	}
	if facts == nil {
		facts = []string{}
	}

	respondJSON(w, http.StatusOK, factsResponse{Success: true, Facts: facts})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Success: false, Message: message})
}
