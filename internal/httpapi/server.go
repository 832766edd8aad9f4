package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/craftedbits/emojigen/internal/auth"
	"github.com/craftedbits/emojigen/internal/models"
	"github.com/craftedbits/emojigen/internal/replicate"
	"github.com/craftedbits/emojigen/internal/service"
)

type Server struct {
	addr       string
	log        *slog.Logger
	generation *service.GenerationService
	credits    *service.CreditService
	emojis     *service.EmojiService
	likes      *service.LikeService
	httpClient *http.Client
	router     *chi.Mux
}

func NewServer(addr, sessionSecret string, log *slog.Logger, generation *service.GenerationService, credits *service.CreditService, emojis *service.EmojiService, likes *service.LikeService) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:       addr,
		log:        log,
		generation: generation,
		credits:    credits,
		emojis:     emojis,
		likes:      likes,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		router:     r,
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(public chi.Router) {
			public.Use(auth.OptionalMiddleware(sessionSecret))
			public.Get("/emojis", s.handleListEmojis)
		})
		r.Get("/emojis/{id}/download", s.handleDownload)

		r.Group(func(protected chi.Router) {
			protected.Use(auth.Middleware(sessionSecret))
			protected.Post("/generate", s.handleGenerate)
			protected.Get("/credits", s.handleCredits)
			protected.Get("/emojis/mine", s.handleMyEmojis)
			protected.Post("/emojis/{id}/like", s.handleToggleLike)
		})
	})

	return s
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Success bool     `json:"success"`
	Images  []string `json:"images"`
	Credits int      `json:"credits"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	emoji, _, err := s.generation.Generate(r.Context(), userID, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPromptRequired):
			s.writeError(w, http.StatusBadRequest, "Prompt is required")
		case errors.Is(err, service.ErrCreditsExhausted):
			s.writeError(w, http.StatusPaymentRequired, "No credits remaining")
		case errors.Is(err, replicate.ErrTimeout):
			s.writeError(w, http.StatusGatewayTimeout, "Generation is taking longer than expected. Please try again.")
		case errors.Is(err, replicate.ErrNoOutput):
			s.writeError(w, http.StatusInternalServerError, "No output from model")
		default:
			s.log.Error("generate emoji", "user_id", userID, "err", err)
			s.writeError(w, http.StatusInternalServerError, "Failed to generate emoji. Please try again.")
		}
		return
	}

	balance, err := s.credits.FetchBalance(r.Context(), userID)
	remaining := 0
	if err == nil {
		remaining = balance.Credits
	}

	s.writeJSON(w, http.StatusOK, generateResponse{
		Success: true,
		Images:  []string{emoji.ImageURL},
		Credits: remaining,
	})
}

type creditsResponse struct {
	Credits int `json:"credits"`
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	balance, err := s.credits.FetchBalance(r.Context(), userID)
	if err != nil {
		s.log.Error("fetch credits", "user_id", userID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch credits")
		return
	}
	s.writeJSON(w, http.StatusOK, creditsResponse{Credits: balance.Credits})
}

type emojiResponse struct {
	ID         string    `json:"id"`
	ImageURL   string    `json:"imageUrl"`
	Prompt     string    `json:"prompt"`
	LikesCount int       `json:"likes_count"`
	Liked      bool      `json:"liked"`
	CreatedAt  time.Time `json:"created_at"`
}

func toEmojiResponses(emojis []models.Emoji) []emojiResponse {
	out := make([]emojiResponse, 0, len(emojis))
	for _, e := range emojis {
		out = append(out, emojiResponse{
			ID:         e.ID,
			ImageURL:   e.ImageURL,
			Prompt:     e.Prompt,
			LikesCount: e.LikesCount,
			Liked:      e.Liked,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

func (s *Server) handleListEmojis(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserID(r.Context())
	filter := models.Filter(r.URL.Query().Get("filter"))

	emojis, err := s.emojis.List(r.Context(), viewerID, filter)
	if err != nil {
		s.log.Error("list emojis", "err", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch emojis")
		return
	}
	s.writeJSON(w, http.StatusOK, toEmojiResponses(emojis))
}

func (s *Server) handleMyEmojis(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	emojis, err := s.emojis.ListMine(r.Context(), userID)
	if err != nil {
		s.log.Error("list own emojis", "user_id", userID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch emojis")
		return
	}
	s.writeJSON(w, http.StatusOK, toEmojiResponses(emojis))
}

type toggleLikeRequest struct {
	Liked bool `json:"liked"`
}

type toggleLikeResponse struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	emojiID := chi.URLParam(r, "id")

	var req toggleLikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.likes.Toggle(r.Context(), userID, emojiID, req.Liked)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmojiNotFound):
			s.writeError(w, http.StatusNotFound, "Emoji not found")
		case errors.Is(err, service.ErrToggleInFlight):
			s.writeError(w, http.StatusConflict, "Like update already in progress")
		default:
			s.log.Error("toggle like", "user_id", userID, "emoji_id", emojiID, "err", err)
			s.writeError(w, http.StatusInternalServerError, "Failed to update like status")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, toggleLikeResponse{
		Liked:      result.Liked,
		LikesCount: result.LikesCount,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	emojiID := chi.URLParam(r, "id")

	emoji, err := s.emojis.Get(r.Context(), emojiID)
	if err != nil {
		s.log.Error("fetch emoji for download", "emoji_id", emojiID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch emoji")
		return
	}
	if emoji == nil {
		s.writeError(w, http.StatusNotFound, "Emoji not found")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, emoji.ImageURL, nil)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch image")
		return
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Error("fetch image for download", "emoji_id", emojiID, "err", err)
		s.writeError(w, http.StatusBadGateway, "Failed to fetch image")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.writeError(w, http.StatusBadGateway, "Failed to fetch image")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=emoji-%d.png", time.Now().Unix()))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.log.Error("stream image", "emoji_id", emojiID, "err", err)
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Success: false, Error: msg})
}
