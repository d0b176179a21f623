package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quochuy14775/SmartResourceBookingBE/config"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/currentuser"
	"github.com/quochuy14775/SmartResourceBookingBE/internal/model"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/jwt"
	"github.com/quochuy14775/SmartResourceBookingBE/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		Issuer:         "test",
		AccessTokenTTL: time.Hour,
	})
}

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type fakeLookup struct{}

func (fakeLookup) FindByID(_ context.Context, id int64) (*model.User, error) {
	return &model.User{ID: id, UserName: "alice"}, nil
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth / RoleAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newJWT()
	bl := &fakeBlacklist{revoked: map[string]bool{}}

	r := gin.New()
	r.GET("/me", JWTAuth(mgr, bl, fakeLookup{}, zap.NewNop()), func(c *gin.Context) {
		a := currentuser.FromContext(c)
		u, err := a.GetCurrentUser(c.Request.Context())
		if err != nil || u == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, "%d:%s", a.GetCurrentUserID(), a.Name())
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "garbage").Code)

	token, _, err := mgr.GenerateAccessToken(42, "alice", "alice@example.com", []string{"USER"})
	require.NoError(t, err)

	w := serve(r, http.MethodGet, "/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42:alice", w.Body.String())

	// 重置令牌不能当作访问令牌使用
	reset, err := mgr.GenerateResetToken(42, "stamp", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", reset).Code)

	claims, err := mgr.ParseToken(token)
	require.NoError(t, err)
	bl.revoked[claims.ID] = true
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", token).Code)

	// 黑名单不可用时降级放行
	bl.err = errors.New("redis down")
	bl.revoked = map[string]bool{}
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/me", token).Code)
}

func TestRoleAuth(t *testing.T) {
	mgr := newJWT()
	r := gin.New()
	r.GET("/admin", JWTAuth(mgr, nil, fakeLookup{}, zap.NewNop()), RoleAuth(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/bare", RoleAuth(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	user, _, err := mgr.GenerateAccessToken(1, "u", "u@example.com", []string{"USER"})
	require.NoError(t, err)
	admin, _, err := mgr.GenerateAccessToken(2, "a", "a@example.com", []string{"admin"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", user).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/admin", admin).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/bare", "").Code)
}

// ── RateLimit ──

type failingLimiter struct{}

func (failingLimiter) CheckRateLimit(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimit_LocalFallback(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	for name, remote := range map[string]WindowLimiter{"no redis": nil, "redis error": failingLimiter{}} {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.POST("/login", RateLimit(remote, RateLimitOptions{Limit: 2, Window: time.Hour}, m, zap.NewNop()), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/login", "").Code)
			assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/login", "").Code)
			assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/login", "").Code)
		})
	}
	assert.Equal(t, float64(2), testutil.ToFloat64(m.RateLimitHits.WithLabelValues("/login")))
}

// ── 其他 ──

func TestRequestIDAndBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), BodyLimit(8))
	r.POST("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("tiny"))
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("this body is too large"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
