package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KoushikCodesWebpages/SappBackend/config"
	"github.com/KoushikCodesWebpages/SappBackend/internal/authz"
	pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/jwt"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLoader struct {
	principals map[string]*authz.Principal
	err        error
}

func (s *stubLoader) LoadPrincipal(_ context.Context, userID string) (*authz.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	pr, ok := s.principals[userID]
	if !ok {
		return nil, pkgerrors.Unauthenticated(11004, "用户不存在")
	}
	return pr, nil
}

func newJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "middleware-test-secret-key",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newJWT()
	loader := &stubLoader{principals: map[string]*authz.Principal{
		"u1": {UserID: "u1", Role: authz.RoleFaculty, Verified: true},
	}}

	r := gin.New()
	r.Use(JWTAuth(mgr, nil, loader))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, string(PrincipalFrom(c).Role))
	})

	access, err := mgr.GenerateAccessToken("u1")
	require.NoError(t, err)
	refresh, err := mgr.GenerateRefreshToken("u1")
	require.NoError(t, err)
	ghost, err := mgr.GenerateAccessToken("ghost")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"有效 Access Token", "Bearer " + access, http.StatusOK},
		{"缺少认证头", "", http.StatusUnauthorized},
		{"非 Bearer", "Basic " + access, http.StatusUnauthorized},
		{"伪造 Token", "Bearer not-a-token", http.StatusUnauthorized},
		{"Refresh Token 不能访问接口", "Bearer " + refresh, http.StatusUnauthorized},
		{"用户已删除", "Bearer " + ghost, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "faculty", w.Body.String())
			}
		})
	}
}

func TestJWTAuth_LoaderFailureIs500(t *testing.T) {
	mgr := newJWT()
	r := gin.New()
	r.Use(JWTAuth(mgr, nil, &stubLoader{err: context.DeadlineExceeded}))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	token, _ := mgr.GenerateAccessToken("u1")
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	assert.Equal(t, http.StatusInternalServerError, serve(r, req).Code)
}

// ── Authorize ──

func TestAuthorize(t *testing.T) {
	policy := authz.NewPolicy().
		Allow("results", authz.Or(authz.HasRole(authz.RoleStudent), authz.HasRole(authz.RoleFaculty)), http.MethodGet).
		Allow("results", authz.VerifiedRole(authz.RoleFaculty), http.MethodPost)

	build := func(pr *authz.Principal) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			if pr != nil {
				c.Set(ContextKeyPrincipal, pr)
			}
		})
		r.Use(Authorize(policy, "results"))
		h := func(c *gin.Context) { c.Status(http.StatusNoContent) }
		r.GET("/results", h)
		r.POST("/results", h)
		r.DELETE("/results", h)
		return r
	}

	faculty := &authz.Principal{UserID: "f", Role: authz.RoleFaculty, Verified: true}
	unverified := &authz.Principal{UserID: "f2", Role: authz.RoleFaculty}
	student := &authz.Principal{UserID: "s", Role: authz.RoleStudent, StudentCode: "S001-10-A"}

	tests := []struct {
		name   string
		pr     *authz.Principal
		method string
		status int
		code   int
	}{
		{"学生可读", student, http.MethodGet, http.StatusNoContent, 0},
		{"教师可写", faculty, http.MethodPost, http.StatusNoContent, 0},
		{"学生不可写", student, http.MethodPost, http.StatusForbidden, 10003},
		{"未验证教师不可写", unverified, http.MethodPost, http.StatusForbidden, 10006},
		{"未配置动词一律拒绝", faculty, http.MethodDelete, http.StatusForbidden, 10003},
		{"未认证", nil, http.MethodGet, http.StatusUnauthorized, 10002},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(build(tt.pr), httptest.NewRequest(tt.method, "/results", nil))
			require.Equal(t, tt.status, w.Code)
			if tt.code != 0 {
				assert.Equal(t, tt.code, decode(t, w).Code)
			}
		})
	}
}

// ── Conditional ──

func TestConditional_ParsesOnlySafeMethods(t *testing.T) {
	var got map[string]bool
	r := gin.New()
	r.Use(Conditional())
	record := func(c *gin.Context) {
		req := ConditionalFrom(c)
		got[c.Request.Method] = req.Conditional()
	}
	r.GET("/x", record)
	r.PUT("/x", record)

	got = map[string]bool{}
	for _, method := range []string{http.MethodGet, http.MethodPut} {
		req := httptest.NewRequest(method, "/x", nil)
		req.Header.Set("If-None-Match", `W/"123", "456"`)
		serve(r, req)
	}
	assert.True(t, got[http.MethodGet], "GET 应解析条件头")
	assert.False(t, got[http.MethodPut], "PUT 不应解析条件头")
}

func TestConditional_MalformedDateIgnored(t *testing.T) {
	r := gin.New()
	r.Use(Conditional())
	r.GET("/x", func(c *gin.Context) {
		if ConditionalFrom(c).Since() != nil {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("If-Modified-Since", "yesterday")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(requestIDHeader, "trace-abc")
	w := serve(r, req)
	assert.Equal(t, "trace-abc", w.Header().Get(requestIDHeader))
	assert.Equal(t, "trace-abc", w.Body.String())

	for _, bad := range []string{"has space", "换行", strings.Repeat("a", requestIDMaxLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(requestIDHeader, bad)
		w := serve(r, req)
		assert.NotEqual(t, bad, w.Header().Get(requestIDHeader))
		assert.Len(t, w.Header().Get(requestIDHeader), 36, "应替换为 UUID")
	}
}

// ── BodyLimit ──

func TestBodyLimit_StreamingBody(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/x", func(c *gin.Context) {
		var v map[string]interface{}
		if err := c.ShouldBindJSON(&v); err != nil {
			if IsBodyTooLarge(err) {
				RejectBodyTooLarge(c)
				return
			}
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	// ContentLength 未知时由 MaxBytesReader 截断
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"key":"`+strings.Repeat("v", 64)+`"}`))
	req.ContentLength = -1
	w := serve(r, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 10005, decode(t, w).Code)

	small := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"k":1}`))
	assert.Equal(t, http.StatusOK, serve(r, small).Code)
}

// ── CORS / SecurityHeaders / RateLimit ──

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "If-None-Match")
	w := serve(r, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	get := httptest.NewRequest(http.MethodGet, "/x", nil)
	get.Header.Set("Origin", "http://localhost:5173")
	w = serve(r, get)
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Etag")
}

func TestCORS_NoOriginsRejectsCrossOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS(nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestRateLimit_WithoutRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil, 1, time.Minute))
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
