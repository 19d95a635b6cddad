// Package http は外部API（CoinGecko）呼び出し用のHTTPクライアントを提供します。
package http

import (
	"net"
	"net/http"
	"time"
)

// defaultTimeout は timeout が0以下の場合に使用するリクエスト全体のタイムアウトです。
const defaultTimeout = 10 * time.Second

// NewHTTPClient はCoinGecko呼び出し用に設定されたHTTPクライアントを作成します。
//
// 設定:
//   - Client.Timeout: リクエスト全体のタイムアウト（COINGECKO_TIMEOUT、0以下なら10秒）
//   - Proxy: HTTP_PROXY / HTTPS_PROXY が設定されている場合に使用
//   - Dialer.Timeout / KeepAlive: TCP接続タイムアウトとキープアライブ
//   - MaxIdleConnsPerHost: 接続先はほぼ1ホストのため、価格リフレッシュと作成時の検索で接続を使い回せるよう10
//   - IdleConnTimeout / TLSHandshakeTimeout: アイドル接続の維持期間とHTTPSハンドシェイクの上限
//
// http.DefaultClient にはタイムアウトがないため使用しないこと。
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
