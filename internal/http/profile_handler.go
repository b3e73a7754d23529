package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"go.uber.org/zap"
)

type ProfileStore interface {
	Load(ctx context.Context, userID int64) (*domain.Profile, error)
	Upsert(ctx context.Context, p *domain.Profile) error
}

type ProfileHandler struct {
	profiles ProfileStore
	timeout  time.Duration
	log      *zap.Logger
}

func NewProfileHandler(profiles ProfileStore, timeout time.Duration, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		timeout:  timeout,
		log:      log,
	}
}

// GET /profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.profiles.Load(ctx, getUserIDFromContext(ctx))
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfileDTO(p))
}

// PUT /profile
func (h *ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProfileDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	p := req.toDomain(getUserIDFromContext(ctx))
	if err := h.profiles.Upsert(ctx, p); err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfileDTO(p))
}
