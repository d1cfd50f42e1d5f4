// Package handler 提供参数管理 HTTP 接口
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/mutator"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/resolver"
)

// OperatorHeader 操作人请求头, 鉴权由网关负责
const OperatorHeader = "X-Operator"

const defaultOperator = "admin"

// TunablesHandler 参数配置处理器
type TunablesHandler struct {
	resolver *resolver.Resolver
	mutator  *mutator.Mutator
}

// NewTunablesHandler 创建参数配置处理器
func NewTunablesHandler(r *resolver.Resolver, m *mutator.Mutator) *TunablesHandler {
	return &TunablesHandler{
		resolver: r,
		mutator:  m,
	}
}

func operator(c *gin.Context) string {
	if op := c.GetHeader(OperatorHeader); op != "" {
		return op
	}
	return defaultOperator
}

// Snapshot 获取当前生效快照
// @Summary 获取当前生效快照, 远端不可用时返回兜底基线
// @Tags 参数配置
// @Success 200 {object} Response{data=snapshot.Snapshot}
// @Router /tunables/v1/snapshot [get]
func (h *TunablesHandler) Snapshot(c *gin.Context) {
	Success(c, h.resolver.Resolve(c.Request.Context()))
}

// Verify 严格解析, 远端失败时返回错误
// @Router /tunables/v1/verify [get]
func (h *TunablesHandler) Verify(c *gin.Context) {
	s, err := h.resolver.ResolveStrict(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, s)
}

// Baseline 获取兜底基线
// @Router /tunables/v1/baseline [get]
func (h *TunablesHandler) Baseline(c *gin.Context) {
	Success(c, h.resolver.Baseline())
}

// Status 获取解析器状态
// @Router /tunables/v1/status [get]
func (h *TunablesHandler) Status(c *gin.Context) {
	Success(c, h.resolver.Status())
}

// Invalidate 丢弃缓存与最近可用快照
// @Router /tunables/v1/invalidate [post]
func (h *TunablesHandler) Invalidate(c *gin.Context) {
	h.resolver.InvalidateLastKnownGood()
	Success(c, nil)
}

// UpdateCore 写入核心配置
// @Router /tunables/v1/core [put]
func (h *TunablesHandler) UpdateCore(c *gin.Context) {
	var req mutator.CoreUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.Operator = operator(c)

	if err := h.mutator.UpdateCore(c.Request.Context(), req); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// DeactivateCore 逻辑删除核心配置
// @Router /tunables/v1/core/{category}/{key} [delete]
func (h *TunablesHandler) DeactivateCore(c *gin.Context) {
	err := h.mutator.DeactivateCore(c.Request.Context(), c.Param("category"), c.Param("key"), operator(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// UpdateSegment 写入客群配置
// @Router /tunables/v1/segments [put]
func (h *TunablesHandler) UpdateSegment(c *gin.Context) {
	var req mutator.SegmentUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.Operator = operator(c)

	if err := h.mutator.UpdateSegment(c.Request.Context(), req); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// UpdateRegion 写入地区系数
// @Router /tunables/v1/regions [put]
func (h *TunablesHandler) UpdateRegion(c *gin.Context) {
	var req mutator.RegionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.Operator = operator(c)

	if err := h.mutator.UpdateRegion(c.Request.Context(), req); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// UpdateScenario 写入场景预设
// @Router /tunables/v1/scenarios [put]
func (h *TunablesHandler) UpdateScenario(c *gin.Context) {
	var req mutator.ScenarioUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.Operator = operator(c)

	if err := h.mutator.UpdateScenario(c.Request.Context(), req); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// BatchRequest 批量变更请求
type BatchRequest struct {
	Mutations []mutator.Mutation `json:"mutations" binding:"required,min=1"`
}

// BatchResponse 批量变更结果
type BatchResponse struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Results   []mutator.Result `json:"results"`
}

// Batch 批量变更, 单行失败不影响其他行
// @Router /tunables/v1/batch [put]
func (h *TunablesHandler) Batch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	results := h.mutator.ApplyBatch(c.Request.Context(), req.Mutations, operator(c))
	resp := BatchResponse{Results: results}
	for _, r := range results {
		if r.OK {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	Success(c, resp)
}
