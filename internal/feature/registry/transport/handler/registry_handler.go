// Package handler はregistryフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"crypto_backend/internal/feature/registry/domain"
	"crypto_backend/internal/feature/registry/domain/entity"
	"crypto_backend/internal/feature/registry/transport/http/dto"
	"crypto_backend/internal/feature/registry/usecase"
)

// RegistryUsecase は追跡対象コインのユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type RegistryUsecase interface {
	Create(ctx context.Context, symbol string, note *string) (*entity.TrackedCoin, error)
	Get(ctx context.Context, symbol string) (*entity.TrackedCoin, error)
	List(ctx context.Context, skip, limit int) ([]entity.TrackedCoin, error)
	Update(ctx context.Context, symbol string, upd usecase.NoteUpdate) (*entity.TrackedCoin, error)
	Delete(ctx context.Context, symbol string) (*entity.TrackedCoin, error)
	RefreshAll(ctx context.Context, currency string) (int, error)
	Currency() string
}

// RegistryHandler は /api/v1/cryptocurrencies 配下のHTTPリクエストを処理します。
type RegistryHandler struct {
	uc RegistryUsecase
}

// NewRegistryHandler は指定されたusecaseでRegistryHandlerの新しいインスタンスを生成します。
func NewRegistryHandler(uc RegistryUsecase) *RegistryHandler {
	return &RegistryHandler{uc: uc}
}

// Create はシンボルを外部APIで検証してコインを登録します。
//
// エンドポイント例:
// POST /api/v1/cryptocurrencies  {"symbol": "btc", "note": "long term"}
func (h *RegistryHandler) Create(c *gin.Context) {
	var req dto.CreateCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	coin, err := h.uc.Create(c.Request.Context(), req.Symbol, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCoinResponse(*coin))
}

// List はID順にコインの一覧を返します。
//
// エンドポイント例:
// GET /api/v1/cryptocurrencies?skip=0&limit=100
func (h *RegistryHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid query: " + err.Error()})
		return
	}
	limit := usecase.DefaultListLimit
	if q.Limit != nil {
		limit = *q.Limit
	}

	coins, err := h.uc.List(c.Request.Context(), q.Skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCoinListResponse(coins))
}

// Get はシンボルでコインを1件返します。
func (h *RegistryHandler) Get(c *gin.Context) {
	coin, err := h.uc.Get(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCoinResponse(*coin))
}

// Update はメモを更新します。"note" が無い場合は何も変更せず現在の行を返し、null の場合はメモを消去します。
func (h *RegistryHandler) Update(c *gin.Context) {
	var req dto.UpdateCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	upd := usecase.KeepNote()
	if req.Note.Set {
		if req.Note.Value == nil {
			upd = usecase.ClearNote()
		} else {
			upd = usecase.SetNote(*req.Note.Value)
		}
	}

	coin, err := h.uc.Update(c.Request.Context(), c.Param("symbol"), upd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCoinResponse(*coin))
}

// Delete はコインを削除し、削除された行を返します。
func (h *RegistryHandler) Delete(c *gin.Context) {
	coin, err := h.uc.Delete(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCoinResponse(*coin))
}

// Refresh は価格リフレッシュを1回手動で実行します。?currency= で通貨を指定できます。
func (h *RegistryHandler) Refresh(c *gin.Context) {
	currency := c.DefaultQuery("currency", h.uc.Currency())
	n, err := h.uc.RefreshAll(c.Request.Context(), currency)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RefreshResponse{Updated: n, Currency: currency})
}

// writeError はドメインエラーをHTTPステータスに変換して書き込みます。
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(status, dto.ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownSymbol), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateSymbol), errors.Is(err, domain.ErrDuplicateExternalID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
