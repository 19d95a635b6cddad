package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"crypto_backend/internal/feature/registry/domain/entity"
	"crypto_backend/internal/feature/registry/usecase"
	"crypto_backend/internal/platform/externalapi/coingecko/dto"
	"crypto_backend/internal/shared/ratelimiter"
)

// errorBodyLimit はエラーログに含めるレスポンスボディの最大バイト数です。
const errorBodyLimit = 512

// Client はCoinGecko APIから市場データを取得するMarketData実装です。
// 失敗はエラーとして返さず、usecase.Lookup の Outcome で表現します。
type Client struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.RateLimiterInterface
}

// ClientがMarketDataを実装していることをコンパイル時に検証します。
var _ usecase.MarketData = (*Client)(nil)

// NewClient は指定された設定・HTTPクライアント・レートリミッターでClientを生成します。
// limiter が nil の場合、呼び出し頻度は制限されません。
func NewClient(cfg Config, client *http.Client, limiter ratelimiter.RateLimiterInterface) *Client {
	return &Client{cfg: cfg, client: client, limiter: limiter}
}

// Search は /search でシンボルを検索し、シンボルが大文字小文字を無視して一致する最初のコインを返します。
func (c *Client) Search(ctx context.Context, symbol string) usecase.Lookup[entity.SearchHit] {
	var body dto.SearchResponse
	if err := c.getJSON(ctx, "/search", url.Values{"query": {symbol}}, &body); err != nil {
		slog.Warn("coingecko search failed", "symbol", symbol, "error", err)
		return usecase.Failed[entity.SearchHit](err)
	}

	for _, coin := range body.Coins {
		if !strings.EqualFold(coin.Symbol, symbol) {
			continue
		}
		id := coin.APISymbol
		if id == "" {
			id = coin.ID
		}
		if id != "" && coin.Name != "" {
			return usecase.Found(entity.SearchHit{ExternalID: id, Name: coin.Name})
		}
	}
	return usecase.Empty[entity.SearchHit]()
}

// Details は /coins/{id} からコインの画像URLを取得します。
func (c *Client) Details(ctx context.Context, externalID string) usecase.Lookup[entity.CoinDetails] {
	if externalID == "" {
		return usecase.Empty[entity.CoinDetails]()
	}
	q := url.Values{}
	for _, k := range []string{"localization", "tickers", "market_data", "community_data", "developer_data", "sparkline"} {
		q.Set(k, "false")
	}

	var body dto.CoinResponse
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(externalID), q, &body); err != nil {
		slog.Warn("coingecko coin details failed", "external_id", externalID, "error", err)
		return usecase.Failed[entity.CoinDetails](err)
	}
	if body.Image.Large == "" {
		return usecase.Empty[entity.CoinDetails]()
	}
	return usecase.Found(entity.CoinDetails{ImageURL: body.Image.Large})
}

// Prices は /simple/price で複数コインの価格を1回のリクエストで取得します。
// null の価格は欠落として扱い、それ以外は float64 に変換します。
func (c *Client) Prices(ctx context.Context, externalIDs []string, currency string) usecase.Lookup[entity.PriceTable] {
	if len(externalIDs) == 0 {
		return usecase.Empty[entity.PriceTable]()
	}
	q := url.Values{}
	q.Set("ids", strings.Join(externalIDs, ","))
	q.Set("vs_currencies", currency)

	var body dto.SimplePriceResponse
	if err := c.getJSON(ctx, "/simple/price", q, &body); err != nil {
		slog.Warn("coingecko price lookup failed", "ids", externalIDs, "error", err)
		return usecase.Failed[entity.PriceTable](err)
	}

	out := make(entity.PriceTable, len(body))
	for id, prices := range body {
		row := make(map[string]float64, len(prices))
		for cur, p := range prices {
			if p.Valid {
				row[strings.ToLower(cur)] = p.Decimal.InexactFloat64()
			}
		}
		out[id] = row
	}
	if len(out) == 0 {
		return usecase.Empty[entity.PriceTable]()
	}
	return usecase.Found(out)
}

// getJSON はレートリミッターを通してGETリクエストを送り、JSONレスポンスを dst にデコードします。
// HTTP 400以上のステータスはエラーになります。
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	if c.limiter != nil {
		if err := c.limiter.WaitIfNeeded(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	u := fmt.Sprintf("%s%s?%s", strings.TrimRight(c.cfg.BaseURL, "/"), path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set(c.cfg.APIKeyHeader, c.cfg.APIKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, errorBodyLimit))
		return &StatusError{Code: res.StatusCode, Body: string(snippet)}
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("coingecko %s: empty response body", path)
		}
		return fmt.Errorf("coingecko %s: decode: %w", path, err)
	}
	return nil
}

// StatusError はCoinGeckoがエラーステータスを返したことを示します。
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko http %d: %s", e.Code, e.Body)
}
