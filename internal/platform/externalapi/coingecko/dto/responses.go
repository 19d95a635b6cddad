// Package dto はCoinGecko APIのレスポンス形式を定義します。
package dto

import "github.com/shopspring/decimal"

// SearchResponse は GET /search のレスポンスです。
type SearchResponse struct {
	Coins []SearchCoin `json:"coins"`
}

// SearchCoin は検索結果のコイン1件です。
type SearchCoin struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	APISymbol string `json:"api_symbol"`
	Symbol    string `json:"symbol"`
}

// CoinResponse は GET /coins/{id} のレスポンスのうち使用する部分です。
type CoinResponse struct {
	ID    string `json:"id"`
	Image struct {
		Thumb string `json:"thumb"`
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"image"`
}

// SimplePriceResponse は GET /simple/price のレスポンスです。
// 例: {"bitcoin": {"usd": 60000.12}}。null や文字列の数値（"60000.12"）も受け付けるよう decimal でデコードします。
// メタデータにはJSON数値として保存するため、クライアント側で float64 に変換します。
type SimplePriceResponse map[string]map[string]decimal.NullDecimal
