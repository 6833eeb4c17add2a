package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
)

// Messages shown to API clients. Authentication failures share one text.
const (
	msgInvalidCredentials = "invalid credentials"
	msgRateLimited        = "too many login attempts, try again later"
	msgInternal           = "internal server error"
	msgBadRequest         = "malformed request"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorStatus maps a service error to the HTTP status and the message the
// client sees. Unknown errors become a generic 500.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, common.ErrorRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, common.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, common.ErrRewardNotFoundOrInactive):
		return http.StatusNotFound, "reward not found or no longer available"
	case errors.Is(err, common.ErrNoLoyaltyRecord):
		return http.StatusConflict, "no points balance yet"
	case errors.Is(err, common.ErrInsufficientPoints):
		return http.StatusUnprocessableEntity, "not enough points"
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, msgBadRequest
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the JSON body of POST /api/auth/login. Identifier is a
// WordPress username or e-mail address.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RefreshRequest is the JSON body of the refresh and logout endpoints.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RewardResponse is the JSON representation of a catalogue entry.
type RewardResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CostPoints  int64  `json:"cost_points"`
	ImageURL    string `json:"image_url,omitempty"`
}

// RedeemResponse is returned by a successful redemption.
type RedeemResponse struct {
	RedemptionID string `json:"redemption_id"`
	Code         string `json:"code"`
	NewBalance   int64  `json:"new_balance"`
}

// RedemptionResponse is one entry of the redemption history.
type RedemptionResponse struct {
	ID          string `json:"id"`
	RewardID    int64  `json:"reward_id"`
	RewardName  string `json:"reward_name"`
	Code        string `json:"code"`
	PointsSpent int64  `json:"points_spent"`
	CreatedAt   string `json:"created_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toRewardResponse(r models.Reward) RewardResponse {
	return RewardResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CostPoints:  r.CostPoints,
		ImageURL:    r.ImageURL,
	}
}

func toRedemptionResponse(r models.Redemption) RedemptionResponse {
	return RedemptionResponse{
		ID:          r.ID,
		RewardID:    r.RewardID,
		RewardName:  r.RewardName,
		Code:        r.Code,
		PointsSpent: r.PointsSpent,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
	}
}
