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
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"projecthub/internal/core/auth"
	"projecthub/internal/domain"
	resp "projecthub/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

type memUsers map[string]*domain.User

func (m memUsers) FindByID(_ context.Context, id string) (*domain.User, error) { return m[id], nil }

func newAuth(t *testing.T) (*Auth, *auth.JWTer) {
	t.Helper()
	j := &auth.JWTer{Secret: []byte("k"), Issuer: "projecthub", TTL: time.Hour}
	users := memUsers{
		"u1":  {ID: "u1", Name: "Ann", Role: domain.RoleUser, Active: true},
		"a1":  {ID: "a1", Name: "Root", Role: domain.RoleAdmin, Active: true},
		"off": {ID: "off", Name: "Off", Role: domain.RoleUser, Active: false},
	}
	return NewAuth(auth.NewResolver(j, users), zap.NewNop()), j
}

func token(t *testing.T, j *auth.JWTer, uid string) string {
	t.Helper()
	tok, err := j.Issue(uid)
	require.NoError(t, err)
	return "Bearer " + tok
}

// whoami 返回当前身份 id，匿名为 anon
func whoami(c *gin.Context) {
	id := auth.IdentityFrom(c.Request.Context())
	if id == nil {
		c.String(http.StatusOK, "anon")
		return
	}
	c.String(http.StatusOK, id.ID)
}

func do(r http.Handler, method, path, authz string) (*httptest.ResponseRecorder, resp.Resp) {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body resp.Resp
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuthRequired(t *testing.T) {
	a, j := newAuth(t)
	r := gin.New()
	r.GET("/me", a.Required(), whoami)

	w, body := do(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "not authorized to access this route", body.Message)

	w, _ = do(r, http.MethodGet, "/me", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body = do(r, http.MethodGet, "/me", token(t, j, "off"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "user account is deactivated", body.Message)

	w, _ = do(r, http.MethodGet, "/me", token(t, j, "u1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
}

func TestAuthOptional(t *testing.T) {
	a, j := newAuth(t)
	r := gin.New()
	r.GET("/p", a.Optional(), whoami)

	for _, h := range []string{"", "Bearer garbage", token(t, j, "off"), token(t, j, "ghost")} {
		w, _ := do(r, http.MethodGet, "/p", h)
		assert.Equal(t, http.StatusOK, w.Code, h)
		assert.Equal(t, "anon", w.Body.String(), h)
	}
	w, _ := do(r, http.MethodGet, "/p", token(t, j, "u1"))
	assert.Equal(t, "u1", w.Body.String())
}

func TestAuthorize(t *testing.T) {
	a, j := newAuth(t)
	r := gin.New()
	r.GET("/admin", a.Required(), Authorize(domain.RoleAdmin), whoami)
	r.GET("/bare", Authorize(domain.RoleAdmin), whoami)

	w, body := do(r, http.MethodGet, "/admin", token(t, j, "u1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, body.Message, "user role user")

	w, _ = do(r, http.MethodGet, "/admin", token(t, j, "a1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(r, http.MethodGet, "/bare", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimitPerIP(0.001, 2), whoami)

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
}

func TestIPLimiter_SweepIsThrottled(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	l := newIPLimiter(rate.Inf, 1)
	l.now = func() time.Time { return clock }
	l.idleTTL = 10 * time.Second
	l.sweepAt = 2
	l.sweepEvery = time.Minute

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("b"))

	// a、b 都已空闲，第三个 IP 触发清理
	clock = clock.Add(20 * time.Second)
	assert.True(t, l.allow("c"))
	assert.Len(t, l.buckets, 1)
	swept := l.lastSweep

	// 间隔内再来新 IP 不清理，即使 c、d 已空闲
	assert.True(t, l.allow("d"))
	clock = clock.Add(20 * time.Second)
	assert.True(t, l.allow("e"))
	assert.Len(t, l.buckets, 3)
	assert.Equal(t, swept, l.lastSweep)

	clock = clock.Add(40 * time.Second)
	assert.True(t, l.allow("f"))
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "f")
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.POST("/x", MaxBodyBytes(8), whoami)
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":"0123456789"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.GET("/slow", Timeout(10*time.Millisecond), func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	w, body := do(r, http.MethodGet, "/slow", "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, resp.MsgTimeout, body.Message)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	w, body := do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, resp.MsgInternal, body.Message)
}

func TestRequestIDAndAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a, j := newAuth(t)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/me", a.Required(), whoami)

	w, _ := do(r, http.MethodGet, "/me?token=abc&page=2", token(t, j, "u1"))
	require.Equal(t, http.StatusOK, w.Code)
	rid := w.Header().Get(KeyRequestID)
	assert.NotEmpty(t, rid)

	entries := logs.FilterMessage("HTTP").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, rid, fields["rid"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	q := fields["query"].(map[string][]string)
	assert.Equal(t, []string{"****"}, q["token"])
	assert.Equal(t, []string{"2"}, q["page"])
}

func TestRequestID_Passthrough(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	cases := map[string]bool{
		"abc-123_x.y":           true,
		"":                      false,
		"has space":             false,
		"<script>":              false,
		strings.Repeat("a", 65): false,
	}
	for in, keep := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if in != "" {
			req.Header.Set(KeyRequestID, in)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if keep {
			assert.Equal(t, in, w.Body.String())
		} else {
			assert.NotEqual(t, in, w.Body.String())
			assert.Len(t, w.Body.String(), 36, "expected generated uuid for %q", in)
		}
	}
}

func TestMetrics_CountsByServer(t *testing.T) {
	r := gin.New()
	r.Use(Metrics("test"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpReqTotal.WithLabelValues("test", "/ping", http.MethodGet, "204"))
	do(r, http.MethodGet, "/ping", "")
	do(r, http.MethodGet, "/nowhere", "")

	assert.Equal(t, before+1, testutil.ToFloat64(httpReqTotal.WithLabelValues("test", "/ping", http.MethodGet, "204")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpReqTotal.WithLabelValues("test", "unmatched", http.MethodGet, "404")), 1.0)
	assert.Zero(t, testutil.ToFloat64(httpInFlight.WithLabelValues("test")))
}
