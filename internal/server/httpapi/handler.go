// Package httpapi serves the REST API used by the storefront's rewards
// page: login, balance and tier, the reward catalogue and redemptions.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophrewards/internal/logging"
	"github.com/dmitrijs2005/gophrewards/internal/server/metrics"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
	"github.com/dmitrijs2005/gophrewards/internal/server/services"
	"github.com/rs/cors"
)

const maxBodyBytes = 1 << 16

// AuthService is satisfied by *services.AuthService.
type AuthService interface {
	Login(ctx context.Context, identifier, secret, clientIP string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	AccountIDFromAccessToken(token string) (int64, error)
}

// LoyaltyService is satisfied by *services.LoyaltyService.
type LoyaltyService interface {
	Summary(ctx context.Context, accountID int64) (*models.Summary, error)
}

// RewardService is satisfied by *services.RewardService.
type RewardService interface {
	List(ctx context.Context, activeOnly bool) ([]models.Reward, error)
}

// RedemptionService is satisfied by *services.RedemptionService.
type RedemptionService interface {
	Redeem(ctx context.Context, accountID, rewardID int64) (*models.RedemptionResult, error)
	History(ctx context.Context, accountID int64, limit int) ([]models.Redemption, error)
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	auth        AuthService
	loyalty     LoyaltyService
	rewards     RewardService
	redemptions RedemptionService
	health      func(context.Context) error
	logger      logging.Logger
}

// NewHandler creates a Handler with all required dependencies. health may
// be nil.
func NewHandler(
	auth AuthService,
	loyalty LoyaltyService,
	rewards RewardService,
	redemptions RedemptionService,
	health func(context.Context) error,
	logger logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Handler{
		auth:        auth,
		loyalty:     loyalty,
		rewards:     rewards,
		redemptions: redemptions,
		health:      health,
		logger:      logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request id, logging, recovery and CORS middleware.
func NewServeMux(h *Handler, m *metrics.Metrics, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/refresh", h.Refresh)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/loyalty", h.requireAuth(h.Summary))
	mux.HandleFunc("GET /api/rewards", h.ListRewards)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", h.requireAuth(h.Redeem))
	mux.HandleFunc("GET /api/redemptions", h.requireAuth(h.History))
	mux.HandleFunc("GET /api/health", h.Health)
	mux.Handle("GET /metrics", m.Handler())

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(h.logger, mux)
	wrapped = loggingMiddleware(h.logger, m, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         600,
	})
	return c.Handler(wrapped)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, msg)
}

// clientIP is the peer address without port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Login exchanges a username or e-mail and password for a token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := h.auth.Login(r.Context(), req.Identifier, req.Password, clientIP(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Refresh rotates a refresh token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := h.auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout revokes a refresh token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary returns the caller's balance and tier progress.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, _ := accountID(r.Context())
	sum, err := h.loyalty.Summary(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ListRewards returns the active catalogue. It does not require a login.
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	list, err := h.rewards.List(r.Context(), true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]RewardResponse, 0, len(list))
	for _, rw := range list {
		resp = append(resp, toRewardResponse(rw))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Redeem spends the caller's points on the reward in the path.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	rewardID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || rewardID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reward id")
		return
	}
	id, _ := accountID(r.Context())

	res, err := h.redemptions.Redeem(r.Context(), id, rewardID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, RedeemResponse{
		RedemptionID: res.RedemptionID,
		Code:         res.Code,
		NewBalance:   res.NewBalance,
	})
}

// History lists the caller's redemptions, newest first. ?limit= caps it.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	id, _ := accountID(r.Context())

	list, err := h.redemptions.History(r.Context(), id, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]RedemptionResponse, 0, len(list))
	for _, rd := range list {
		resp = append(resp, toRedemptionResponse(rd))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health reports whether the ledger database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339)}
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "error", err)
			resp.Status = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
