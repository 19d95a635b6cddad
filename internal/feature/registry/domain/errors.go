// Package domain defines domain-level errors for the registry feature.
package domain

import "errors"

// Domain errors for registry operations.
// Upper layers match them with errors.Is; callers may wrap them with extra detail.
var (
	// ErrValidation indicates malformed input (e.g., an empty or overlong symbol, an out-of-range page).
	// It is returned before any store or provider access.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateSymbol indicates that a coin with the same symbol is already tracked.
	ErrDuplicateSymbol = errors.New("cryptocurrency with this symbol already exists")

	// ErrDuplicateExternalID indicates that another tracked symbol already resolves to the same provider coin.
	ErrDuplicateExternalID = errors.New("cryptocurrency with this external id already exists")

	// ErrUnknownSymbol indicates that the market data provider returned no coin for the symbol,
	// either because nothing matched or because the search itself failed.
	ErrUnknownSymbol = errors.New("symbol not found on market data provider")

	// ErrNotFound indicates that no tracked coin matches the symbol.
	ErrNotFound = errors.New("cryptocurrency not found")
)
