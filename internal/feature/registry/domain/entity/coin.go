// Package entity defines the domain models for the registry feature.
package entity

import (
	"maps"
	"time"
)

// TrackedCoin represents a cryptocurrency the user has chosen to track.
// Symbol, Name and ExternalID are fixed at creation; Note is changed by updates
// and Metadata by the price refresh.
type TrackedCoin struct {
	ID          uint
	Symbol      string  // Canonical uppercase ticker (e.g., "BTC")
	Name        string  // Display name resolved from the provider (e.g., "Bitcoin")
	ExternalID  *string // Provider identifier (e.g., "bitcoin")
	Metadata    Metadata
	Note        *string
	LastUpdated time.Time
}

// Metadata holds open-ended provider data such as "current_price_usd" or "image".
type Metadata map[string]any

const (
	// MetadataImage は画像URLを保持するメタデータキーです。
	MetadataImage = "image"
	// metadataPricePrefix は通貨別価格キーの接頭辞です。
	metadataPricePrefix = "current_price_"
)

// PriceKey returns the metadata key under which the price in currency is stored.
func PriceKey(currency string) string {
	return metadataPricePrefix + currency
}

// Merge returns a copy of m with every key of patch written over it.
// Keys of m that patch does not mention are preserved.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := make(Metadata, len(m)+len(patch))
	maps.Copy(out, m)
	maps.Copy(out, patch)
	return out
}

// Clone returns a shallow copy of m. A nil map clones to an empty one.
func (m Metadata) Clone() Metadata {
	return m.Merge(nil)
}
