package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"shipboard-community/internal/domain"
	"shipboard-community/internal/domain/model"
	"shipboard-community/internal/usecase"
)

// Server is the thin HTTP surface over the cache and counter layer. Routing
// for the rest of the platform lives elsewhere; these endpoints exist for the
// contracts the core exposes: cached user headers, notification summaries,
// viewed marks, and the account-creation path with its ordering guarantee.
type Server struct {
	cache    usecase.UserCache
	notifs   usecase.NotificationUseCase
	accounts usecase.AccountUseCase
	log      *zerolog.Logger
}

func NewServer(cache usecase.UserCache, notifs usecase.NotificationUseCase,
	accounts usecase.AccountUseCase, logger *zerolog.Logger) *Server {
	return &Server{cache: cache, notifs: notifs, accounts: accounts, log: logger}
}

// Router builds the chi router. The caller must not serve it before
// UserCache.Populate has completed.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v3", func(r chi.Router) {
		r.Post("/user/create", s.handleCreateAccount)
		r.Route("/user/{userID}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Get("/notifications", s.handleSummary)
			r.Post("/notifications/{field}/viewed", s.handleMarkViewed)
			r.Post("/conversations/{kind}/{convID}/viewed", s.handleConversationViewed)
			r.Post("/block/{otherID}", s.handleBlock)
			r.Post("/mute/{otherID}", s.handleMute)
			r.Post("/alertwords/{word}", s.handleAddAlertWord)
			r.Delete("/alertwords/{word}", s.handleRemoveAlertWord)
		})
	})
	return r
}

type userResponse struct {
	UserID      string `json:"userID"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarRef   string `json:"avatarRef,omitempty"`
}

type categoryCountResponse struct {
	Field   string `json:"field"`
	Current int64  `json:"current"`
	Viewed  int64  `json:"viewed,omitempty"`
	Unseen  int64  `json:"unseen"`
}

type summaryResponse struct {
	UserID      string                  `json:"userID"`
	TotalUnseen int64                   `json:"totalUnseen"`
	Counts      []categoryCountResponse `json:"counts"`
}

type createAccountRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	header, err := s.cache.Lookup(id)
	if err != nil {
		s.cacheError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		UserID:      header.ID.String(),
		Username:    header.Username,
		DisplayName: header.DisplayName,
		AvatarRef:   header.AvatarRef,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	// Conversation membership comes from the relational layer; handlers in the
	// full platform pass it through. Here the standard categories suffice.
	sum := s.notifs.Summary(r.Context(), id, nil)

	resp := summaryResponse{UserID: id.String(), TotalUnseen: sum.TotalUnseen()}
	for _, c := range sum.Counts {
		cc := categoryCountResponse{Field: c.Category.Field(), Current: c.Current}
		if c.Category.HasViewed() {
			cc.Viewed = c.Viewed
			cc.Unseen = c.Unseen()
		} else {
			cc.Unseen = c.Current
		}
		resp.Counts = append(resp.Counts, cc)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkViewed(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	cat, ok := categoryFromField(chi.URLParam(r, "field"))
	if !ok {
		http.Error(w, "unknown notification field", http.StatusBadRequest)
		return
	}
	if err := s.notifs.MarkViewed(r.Context(), cat, id); err != nil {
		s.log.Warn().Err(err).Msg("mark viewed failed")
		http.Error(w, "counter store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConversationViewed(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	convID, ok := s.pathUUID(w, r, "convID")
	if !ok {
		return
	}
	kind := model.ConversationKind(chi.URLParam(r, "kind"))
	switch kind {
	case model.KindSeamail, model.KindGroupChat, model.KindModSeamail:
	default:
		http.Error(w, "unknown conversation kind", http.StatusBadRequest)
		return
	}
	cat := model.ConversationCategory{Kind: kind, ConversationID: convID}
	if err := s.notifs.MarkViewed(r.Context(), cat, id); err != nil {
		s.log.Warn().Err(err).Msg("conversation mark viewed failed")
		http.Error(w, "counter store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}
	header, err := s.accounts.CreateAccount(r.Context(), req.Username, req.DisplayName)
	if err != nil {
		s.log.Error().Err(err).Msg("account creation failed")
		http.Error(w, "account creation failed", http.StatusInternalServerError)
		return
	}
	// The cache entry is installed before this response leaves the server;
	// the client's next request will find the account everywhere.
	writeJSON(w, http.StatusCreated, userResponse{
		UserID:      header.ID.String(),
		Username:    header.Username,
		DisplayName: header.DisplayName,
	})
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	s.relationChange(w, r, s.accounts.BlockUser)
}

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	s.relationChange(w, r, s.accounts.MuteUser)
}

func (s *Server) relationChange(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, userID, otherID uuid.UUID) error) {
	id, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	other, ok := s.pathUUID(w, r, "otherID")
	if !ok {
		return
	}
	if err := apply(r.Context(), id, other); err != nil {
		s.log.Error().Err(err).Msg("relation change failed")
		http.Error(w, "relation change failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleAddAlertWord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	if err := s.accounts.AddAlertWord(r.Context(), id, chi.URLParam(r, "word")); err != nil {
		s.log.Error().Err(err).Msg("add alert word failed")
		http.Error(w, "add alert word failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleRemoveAlertWord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	if err := s.accounts.RemoveAlertWord(r.Context(), id, chi.URLParam(r, "word")); err != nil {
		s.log.Error().Err(err).Msg("remove alert word failed")
		http.Error(w, "remove alert word failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		http.Error(w, "invalid "+param, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) cacheError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserCacheMiss), errors.Is(err, domain.ErrCacheNotPopulated):
		// Invariant violation: surface as an internal error, never a 404.
		http.Error(w, "internal error", http.StatusInternalServerError)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// categoryFromField inverts the key scheme for the scalar categories.
func categoryFromField(field string) (model.NotificationCategory, bool) {
	switch {
	case field == (model.AnnouncementCategory{}).Field():
		return model.AnnouncementCategory{}, true
	case field == (model.MentionCategory{}).Field():
		return model.MentionCategory{}, true
	case strings.HasPrefix(field, "alertword:"):
		word := model.NormalizeWord(strings.TrimPrefix(field, "alertword:"))
		if word == "" {
			return nil, false
		}
		return model.AlertWordCategory{Word: word}, true
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
