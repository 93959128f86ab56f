package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"projecthub/internal/core/config"
	httpez "projecthub/internal/transport/http/ez"
	mdw "projecthub/internal/transport/http/middleware"
	resp "projecthub/internal/transport/http/response"
)

// Deps 装配路由所需的依赖
type Deps struct {
	Log      *zap.Logger
	Auth     *mdw.Auth
	Limit    config.Limit
	Registry *Registry
	// Health 为空时只报告进程存活
	Health func() error
}

// base 两个入口共用的中间件链与探活接口；r 由 server.NewRouter 创建，name 用作指标标签
func base(r *gin.Engine, name string, d Deps) {
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(d.Limit.RPS), d.Limit.Burst),
		mdw.ConcurrencyLimit(d.Limit.Concurrency),
		mdw.MaxBodyBytes(d.Limit.MaxBodyBytes),
		mdw.Timeout(time.Duration(d.Limit.TimeoutSec)*time.Second),
		mdw.Metrics(name),
		mdw.AccessLog(d.Log),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(); err != nil {
				d.Log.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, resp.Fail("unhealthy"))
				return
			}
		}
		c.JSON(http.StatusOK, resp.OK(gin.H{"status": "ok", "time": time.Now().UTC()}))
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resp.Fail(resp.MsgRouteNotFound))
	})
}

// NewAPIEngine 用户端：/api/v1
func NewAPIEngine(r *gin.Engine, d Deps) *gin.Engine {
	base(r, "api", d)

	api := httpez.New(r.Group("/api/v1"), d.Auth, d.Log)
	d.Registry.MountAllAPI(api)
	return r
}
