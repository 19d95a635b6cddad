// Package dto defines data transfer objects for the registry HTTP API.
package dto

import (
	"time"

	"github.com/samber/lo"

	"crypto_backend/internal/feature/registry/domain/entity"
)

// CreateCoinRequest is the body of POST /api/v1/cryptocurrencies.
type CreateCoinRequest struct {
	Symbol string  `json:"symbol" binding:"required"`
	Note   *string `json:"note"`
}

// UpdateCoinRequest is the body of PUT /api/v1/cryptocurrencies/:symbol.
// Only the note can be changed; an absent "note" leaves it untouched and null clears it.
type UpdateCoinRequest struct {
	Note OptionalString `json:"note"`
}

// ListQuery holds the pagination parameters of GET /api/v1/cryptocurrencies.
type ListQuery struct {
	Skip  int  `form:"skip"`
	Limit *int `form:"limit"`
}

// CoinResponse represents a tracked coin in API responses.
type CoinResponse struct {
	ID           uint           `json:"id"`
	Symbol       string         `json:"symbol"`
	Name         string         `json:"name"`
	CoingeckoID  *string        `json:"coingecko_id"`
	CoinMetadata map[string]any `json:"coin_metadata"`
	Note         *string        `json:"note"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// RefreshResponse is returned by POST /api/v1/cryptocurrencies/refresh.
type RefreshResponse struct {
	Updated  int    `json:"updated"`
	Currency string `json:"currency"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewCoinResponse converts a domain entity into its API representation.
func NewCoinResponse(c entity.TrackedCoin) CoinResponse {
	md := map[string]any(c.Metadata)
	if md == nil {
		md = map[string]any{}
	}
	return CoinResponse{
		ID:           c.ID,
		Symbol:       c.Symbol,
		Name:         c.Name,
		CoingeckoID:  c.ExternalID,
		CoinMetadata: md,
		Note:         c.Note,
		LastUpdated:  c.LastUpdated.UTC(),
	}
}

// NewCoinListResponse converts a page of coins. It never returns nil so the JSON is always an array.
func NewCoinListResponse(coins []entity.TrackedCoin) []CoinResponse {
	return lo.Map(coins, func(c entity.TrackedCoin, _ int) CoinResponse {
		return NewCoinResponse(c)
	})
}
