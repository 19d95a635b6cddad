// Package router はアプリケーションのHTTPルーティングを定義します。
package router

import (
	"context"
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	registryhandler "crypto_backend/internal/feature/registry/transport/handler"
	platformhandler "crypto_backend/internal/platform/http/handler"
	jwtmw "crypto_backend/internal/platform/jwt"
)

// ServiceName は "/" のウェルカムメッセージに表示されるサービス名です。
const ServiceName = "Crypto Tracking API"

// NewRouter はginエンジンを生成し、すべてのルートを登録します。
// ping は /readyz でストアの疎通確認に使用します。
// jwtSecret が空でない場合、更新系ルートにはJWT認証が必要になります。
func NewRouter(registry *registryhandler.RegistryHandler, ping func(ctx context.Context) error, jwtSecret string) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	// 認証不要
	r.GET("/", platformhandler.Welcome(ServiceName))
	// 導通確認用
	r.GET("/healthz", platformhandler.Health)
	r.HEAD("/healthz", platformhandler.Health)
	r.OPTIONS("/healthz", platformhandler.Health)
	r.GET("/readyz", platformhandler.Ready(ping))

	coins := r.Group("/api/v1/cryptocurrencies")
	coins.GET("", registry.List)
	coins.GET("/:symbol", registry.Get)

	// 更新系ルート
	write := coins.Group("")
	if jwtSecret != "" {
		write.Use(jwtmw.AuthRequired(jwtSecret))
	} else {
		slog.Warn("JWT_SECRET is not set; write endpoints are not protected")
	}
	{
		write.POST("", registry.Create)
		write.POST("/refresh", registry.Refresh)
		write.PUT("/:symbol", registry.Update)
		write.DELETE("/:symbol", registry.Delete)
	}

	return r
}
