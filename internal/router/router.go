package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/handler"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/middleware"
)

// Handlers 所有处理器
type Handlers struct {
	Tunables *handler.TunablesHandler
	Classify *handler.ClassifyHandler
}

// SetupRouter 设置路由
func SetupRouter(r *gin.Engine, h *Handlers) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/tunables/v1")
	{
		// 读取
		v1.GET("/snapshot", h.Tunables.Snapshot)
		v1.GET("/verify", h.Tunables.Verify)
		v1.GET("/baseline", h.Tunables.Baseline)
		v1.GET("/status", h.Tunables.Status)
		v1.POST("/invalidate", h.Tunables.Invalidate)

		// 变更
		v1.PUT("/core", h.Tunables.UpdateCore)
		v1.DELETE("/core/:category/:key", h.Tunables.DeactivateCore)
		v1.PUT("/segments", h.Tunables.UpdateSegment)
		v1.PUT("/regions", h.Tunables.UpdateRegion)
		v1.PUT("/scenarios", h.Tunables.UpdateScenario)
		v1.PUT("/batch", h.Tunables.Batch)

		// 分级
		v1.GET("/tiers", h.Classify.Tiers)
		v1.POST("/classify", h.Classify.Classify)
		v1.POST("/classify/component", h.Classify.ClassifyComponent)
	}
}

// New 创建 gin 引擎
func New(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Trace())
	SetupRouter(r, h)
	return r
}
