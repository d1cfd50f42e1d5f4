package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/classifier"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/snapshot"
)

// ClassifyHandler 风险分级处理器
type ClassifyHandler struct {
	classifier *classifier.Classifier
}

// NewClassifyHandler 创建风险分级处理器
func NewClassifyHandler(c *classifier.Classifier) *ClassifyHandler {
	return &ClassifyHandler{classifier: c}
}

// ClassifyRequest 分级请求
type ClassifyRequest struct {
	Score      *float64                 `json:"score" binding:"required"`
	Sync       bool                     `json:"sync"`
	Thresholds *snapshot.RiskThresholds `json:"thresholds,omitempty"`
}

// ClassifyResponse 分级结果
type ClassifyResponse struct {
	Score float64 `json:"score"`
	classifier.Descriptor
}

// Classify 综合风险分级
// @Summary sync=true 时使用最近可用快照, 不触发远端读取
// @Router /tunables/v1/classify [post]
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	var tier classifier.Tier
	if req.Sync {
		tier = h.classifier.ClassifySync(*req.Score)
	} else {
		tier = h.classifier.Classify(c.Request.Context(), *req.Score, req.Thresholds)
	}

	Success(c, ClassifyResponse{
		Score:      classifier.Clamp(*req.Score),
		Descriptor: classifier.Describe(tier),
	})
}

// ComponentRequest 子项分级请求
type ComponentRequest struct {
	Score      *float64                      `json:"score" binding:"required"`
	Sync       bool                          `json:"sync"`
	Thresholds *snapshot.ComponentThresholds `json:"thresholds,omitempty"`
}

// ClassifyComponent 子项严重度
// @Router /tunables/v1/classify/component [post]
func (h *ClassifyHandler) ClassifyComponent(c *gin.Context) {
	var req ComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	var severity classifier.Severity
	if req.Sync {
		severity = h.classifier.ClassifyComponentSync(*req.Score)
	} else {
		severity = h.classifier.ClassifyComponent(c.Request.Context(), *req.Score, req.Thresholds)
	}

	Success(c, gin.H{
		"score":    classifier.Clamp(*req.Score),
		"severity": severity,
	})
}

// Tiers 列出全部等级的展示信息
// @Router /tunables/v1/tiers [get]
func (h *ClassifyHandler) Tiers(c *gin.Context) {
	tiers := []classifier.Tier{classifier.TierLow, classifier.TierModerate, classifier.TierHigh}
	out := make([]classifier.Descriptor, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, classifier.Describe(t))
	}
	Success(c, out)
}
