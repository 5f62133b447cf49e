/**
 * @description
 * This file contains the HTTP handlers for the mass-payout service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, errors, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tokenstudio/mass-payout-service/internal/app"
	"github.com/tokenstudio/mass-payout-service/internal/domain"
	"github.com/tokenstudio/mass-payout-service/internal/store"
)

// RateLimiter decides whether another payout may be created for an asset
// right now; the policy lives behind the interface.
type RateLimiter interface {
	AllowPayoutCreation(ctx context.Context, assetID uuid.UUID) (allowed bool, retryAfter time.Duration, err error)
}

// PayoutHandlers holds the application service that handlers will use.
type PayoutHandlers struct {
	service *app.Service
	limiter RateLimiter
	logger  *slog.Logger
}

// NewPayoutHandlers creates a new instance of PayoutHandlers.
func NewPayoutHandlers(service *app.Service, limiter RateLimiter, logger *slog.Logger) *PayoutHandlers {
	return &PayoutHandlers{
		service: service,
		limiter: limiter,
		logger:  logger,
	}
}

// errorResponse is the uniform error body for all endpoints.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Cause      string `json:"cause,omitempty"`
}

type importAssetRequest struct {
	HederaTokenAddress string `json:"hedera_token_address"`
}

type createPayoutRequest struct {
	Subtype    string     `json:"subtype"`
	ExecuteAt  *time.Time `json:"execute_at,omitempty"`
	Recurrency *string    `json:"recurrency,omitempty"`
	Amount     string     `json:"amount"`
	AmountType string     `json:"amount_type"`
	Concept    string     `json:"concept"`
}

type createCorporateActionRequest struct {
	ExecuteAt  time.Time `json:"execute_at"`
	Amount     string    `json:"amount"`
	AmountType string    `json:"amount_type"`
	Concept    string    `json:"concept"`
}

// ImportAssetHandler onboards an on-chain token into the local mirror.
func (h *PayoutHandlers) ImportAssetHandler(w http.ResponseWriter, r *http.Request) {
	var req importAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.HederaTokenAddress == "" {
		h.writeError(w, http.StatusBadRequest, "hedera_token_address is required", nil)
		return
	}

	asset, err := h.service.ImportAsset(r.Context(), req.HederaTokenAddress)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, asset)
}

// ListAssetsHandler returns all mirrored assets.
func (h *PayoutHandlers) ListAssetsHandler(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.ListAssets(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if assets == nil {
		assets = []domain.Asset{}
	}
	h.writeJSON(w, http.StatusOK, assets)
}

// GetAssetHandler returns one mirrored asset by ID.
func (h *PayoutHandlers) GetAssetHandler(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.parseUUIDParam(w, r, "assetID")
	if !ok {
		return
	}
	asset, err := h.service.GetAsset(r.Context(), assetID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// CreatePayoutHandler creates a payout distribution for an asset.
func (h *PayoutHandlers) CreatePayoutHandler(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.parseUUIDParam(w, r, "assetID")
	if !ok {
		return
	}
	if !h.consumePayoutRateLimit(w, r, assetID) {
		return
	}

	var req createPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	params := app.CreatePayoutParams{
		Subtype:    domain.PayoutSubtype(req.Subtype),
		ExecuteAt:  req.ExecuteAt,
		Amount:     req.Amount,
		AmountType: domain.AmountType(req.AmountType),
		Concept:    req.Concept,
	}
	if req.Recurrency != nil {
		recurrency := domain.Recurrency(*req.Recurrency)
		params.Recurrency = &recurrency
	}

	dist, err := h.service.CreatePayout(r.Context(), assetID, params)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, dist)
}

// CreateCorporateActionHandler creates a scheduled corporate action for an asset.
func (h *PayoutHandlers) CreateCorporateActionHandler(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.parseUUIDParam(w, r, "assetID")
	if !ok {
		return
	}

	var req createCorporateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dist, err := h.service.CreateCorporateAction(r.Context(), assetID, app.CreateCorporateActionParams{
		ExecuteAt:  req.ExecuteAt,
		Amount:     req.Amount,
		AmountType: domain.AmountType(req.AmountType),
		Concept:    req.Concept,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, dist)
}

// ListDistributionsHandler returns a page of distributions.
func (h *PayoutHandlers) ListDistributionsHandler(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 50)
	offset := parseQueryInt(r, "offset", 0)

	distributions, err := h.service.ListDistributions(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if distributions == nil {
		distributions = []domain.Distribution{}
	}
	h.writeJSON(w, http.StatusOK, distributions)
}

// GetDistributionHandler returns a distribution with its payout history.
func (h *PayoutHandlers) GetDistributionHandler(w http.ResponseWriter, r *http.Request) {
	distributionID, ok := h.parseUUIDParam(w, r, "distributionID")
	if !ok {
		return
	}
	detail, err := h.service.GetDistribution(r.Context(), distributionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

// CancelDistributionHandler cancels a SCHEDULED distribution.
func (h *PayoutHandlers) CancelDistributionHandler(w http.ResponseWriter, r *http.Request) {
	distributionID, ok := h.parseUUIDParam(w, r, "distributionID")
	if !ok {
		return
	}
	dist, err := h.service.CancelDistribution(r.Context(), distributionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dist)
}

func (h *PayoutHandlers) consumePayoutRateLimit(w http.ResponseWriter, r *http.Request, assetID uuid.UUID) bool {
	if h.limiter == nil {
		return true
	}
	allowed, retryAfter, err := h.limiter.AllowPayoutCreation(r.Context(), assetID)
	if err != nil {
		// Fail open: a limiter outage must not block payout creation.
		h.logger.Warn("payout rate limiter unavailable", "asset_id", assetID, "error", err)
		return true
	}
	if !allowed {
		seconds := int(retryAfter / time.Second)
		if retryAfter%time.Second != 0 || seconds < 1 {
			seconds++
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		h.writeError(w, http.StatusTooManyRequests, "Too many payout requests for this asset. Please retry later.", nil)
		return false
	}
	return true
}

func (h *PayoutHandlers) parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid "+name+" format", err)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps domain and store errors onto the HTTP taxonomy.
// Anything unclassified is masked as an opaque 500.
func (h *PayoutHandlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrAssetNotFound),
		errors.Is(err, store.ErrDistributionNotFound),
		errors.Is(err, store.ErrBatchPayoutNotFound):
		h.writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, store.ErrAssetAlreadyExists):
		h.writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidPayoutSubtype),
		errors.Is(err, domain.ErrExecuteAtRequired),
		errors.Is(err, domain.ErrRecurrencyRequired),
		errors.Is(err, domain.ErrInvalidRecurrency),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidAmountType),
		errors.Is(err, domain.ErrDistributionNotCancellable),
		errors.Is(err, domain.ErrAssetPaused),
		errors.Is(err, domain.ErrNoEligibleHolders):
		h.writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func (h *PayoutHandlers) writeError(w http.ResponseWriter, status int, message string, cause error) {
	resp := errorResponse{StatusCode: status, Message: message}
	if cause != nil {
		resp.Cause = cause.Error()
	}
	h.writeJSON(w, status, resp)
}

// writeJSON is a helper to write JSON responses.
func (h *PayoutHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response body", "error", err)
	}
}

func parseQueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
