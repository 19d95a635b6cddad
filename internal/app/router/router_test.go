package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto_backend/internal/feature/registry/domain"
	"crypto_backend/internal/feature/registry/domain/entity"
	registryhandler "crypto_backend/internal/feature/registry/transport/handler"
	"crypto_backend/internal/feature/registry/usecase"
	jwtmw "crypto_backend/internal/platform/jwt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const testSecret = "router-test-secret"

// stubUsecase は常に同じコインを返すRegistryUsecaseの実装です。
type stubUsecase struct{}

func (stubUsecase) coin() *entity.TrackedCoin {
	id := "bitcoin"
	return &entity.TrackedCoin{ID: 1, Symbol: "BTC", Name: "Bitcoin", ExternalID: &id, Metadata: entity.Metadata{}}
}

func (s stubUsecase) Create(context.Context, string, *string) (*entity.TrackedCoin, error) {
	return s.coin(), nil
}

func (s stubUsecase) Get(_ context.Context, symbol string) (*entity.TrackedCoin, error) {
	if strings.EqualFold(symbol, "BTC") {
		return s.coin(), nil
	}
	return nil, domain.ErrNotFound
}

func (s stubUsecase) List(context.Context, int, int) ([]entity.TrackedCoin, error) {
	return []entity.TrackedCoin{*s.coin()}, nil
}

func (s stubUsecase) Update(context.Context, string, usecase.NoteUpdate) (*entity.TrackedCoin, error) {
	return s.coin(), nil
}

func (s stubUsecase) Delete(context.Context, string) (*entity.TrackedCoin, error) {
	return s.coin(), nil
}

func (stubUsecase) RefreshAll(context.Context, string) (int, error) { return 1, nil }

func (stubUsecase) Currency() string { return "usd" }

func newTestRouter(ping func(context.Context) error, secret string) *gin.Engine {
	return NewRouter(registryhandler.NewRegistryHandler(stubUsecase{}), ping, secret)
}

func okPing(context.Context) error { return nil }

func serve(r http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewRouter_PlatformRoutes(t *testing.T) {
	t.Parallel()

	r := newTestRouter(okPing, "")

	w := serve(r, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Welcome to the Crypto Tracking API"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodHead, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"connected"}`, w.Body.String())
}

func TestNewRouter_ReadyzUnavailable(t *testing.T) {
	t.Parallel()

	r := newTestRouter(func(context.Context) error { return errors.New("db down") }, "")
	w := serve(r, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNewRouter_RegistryRoutesWithoutAuth(t *testing.T) {
	t.Parallel()

	r := newTestRouter(okPing, "")

	tests := []struct {
		method string
		target string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/v1/cryptocurrencies", "", http.StatusOK},
		{http.MethodGet, "/api/v1/cryptocurrencies/btc", "", http.StatusOK},
		{http.MethodGet, "/api/v1/cryptocurrencies/doge", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/cryptocurrencies", `{"symbol":"BTC"}`, http.StatusCreated},
		{http.MethodPut, "/api/v1/cryptocurrencies/BTC", `{"note":"x"}`, http.StatusOK},
		{http.MethodDelete, "/api/v1/cryptocurrencies/BTC", "", http.StatusOK},
		{http.MethodPost, "/api/v1/cryptocurrencies/refresh", "", http.StatusOK},
	}
	for _, tt := range tests {
		w := serve(r, tt.method, tt.target, tt.body, "")
		assert.Equal(t, tt.want, w.Code, "%s %s", tt.method, tt.target)
	}
}

func TestNewRouter_WriteRoutesRequireToken(t *testing.T) {
	t.Parallel()

	r := newTestRouter(okPing, testSecret)
	token, err := jwtmw.NewGenerator(testSecret, time.Hour).GenerateToken("operator")
	require.NoError(t, err)

	// 参照系は認証不要
	w := serve(r, http.MethodGet, "/api/v1/cryptocurrencies", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	writes := []struct {
		method string
		target string
		body   string
		want   int
	}{
		{http.MethodPost, "/api/v1/cryptocurrencies", `{"symbol":"BTC"}`, http.StatusCreated},
		{http.MethodPut, "/api/v1/cryptocurrencies/BTC", `{"note":"x"}`, http.StatusOK},
		{http.MethodDelete, "/api/v1/cryptocurrencies/BTC", "", http.StatusOK},
		{http.MethodPost, "/api/v1/cryptocurrencies/refresh", "", http.StatusOK},
	}
	for _, tt := range writes {
		w := serve(r, tt.method, tt.target, tt.body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s without token", tt.method, tt.target)

		w = serve(r, tt.method, tt.target, tt.body, token)
		assert.Equal(t, tt.want, w.Code, "%s %s with token", tt.method, tt.target)
	}
}
