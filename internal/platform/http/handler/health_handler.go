// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// readyTimeout は /readyz でのストア疎通確認のタイムアウトです。
const readyTimeout = 2 * time.Second

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// 依存先には触れず、プロセスが応答できることだけを示します。
func Health(c *gin.Context) {
	noStore(c)

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Ready は /readyz を処理するハンドラーを返します。ping が失敗した場合は503を返します。
func Ready(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		noStore(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			slog.Error("readiness check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "disconnected"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "connected"})
	}
}

// Welcome はルート "/" のウェルカムメッセージを返します。
func Welcome(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to the " + name})
	}
}

// noStore は明示的にキャッシュを防止します。
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
}
