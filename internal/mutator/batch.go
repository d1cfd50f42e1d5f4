package mutator

import (
	"context"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/source"
	bizerr "github.com/eidos-exchange/eidos/eidos-tunables/pkg/errors"
)

// Mutation 单行变更, 只能设置其中一个字段
type Mutation struct {
	Core     *CoreUpdate     `json:"core,omitempty"`
	Segment  *SegmentUpdate  `json:"segment,omitempty"`
	Region   *RegionUpdate   `json:"region,omitempty"`
	Scenario *ScenarioUpdate `json:"scenario,omitempty"`
}

// Collection 变更对应的集合
func (m Mutation) Collection() string {
	switch {
	case m.Core != nil:
		return source.CollectionCore
	case m.Segment != nil:
		return source.CollectionSegments
	case m.Region != nil:
		return source.CollectionRegions
	case m.Scenario != nil:
		return source.CollectionScenarios
	}
	return ""
}

// Result 批量变更中单行的结果
type Result struct {
	Index      int    `json:"index"`
	Collection string `json:"collection"`
	OK         bool   `json:"ok"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
	err        error
}

// Err 返回原始错误
func (r Result) Err() error {
	return r.err
}

// Apply 执行一条变更, operator 覆盖各字段中的操作人
func (m *Mutator) Apply(ctx context.Context, mu Mutation, operator string) error {
	set := 0
	for _, ok := range []bool{mu.Core != nil, mu.Segment != nil, mu.Region != nil, mu.Scenario != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return bizerr.Validationf("mutation must set exactly one of core, segment, region, scenario")
	}

	switch {
	case mu.Core != nil:
		u := *mu.Core
		u.Operator = operator
		return m.UpdateCore(ctx, u)
	case mu.Segment != nil:
		u := *mu.Segment
		u.Operator = operator
		return m.UpdateSegment(ctx, u)
	case mu.Region != nil:
		u := *mu.Region
		u.Operator = operator
		return m.UpdateRegion(ctx, u)
	default:
		u := *mu.Scenario
		u.Operator = operator
		return m.UpdateScenario(ctx, u)
	}
}

// ApplyBatch 逐行执行, 失败行不影响其他行, 已成功的行不回滚
func (m *Mutator) ApplyBatch(ctx context.Context, mutations []Mutation, operator string) []Result {
	results := make([]Result, len(mutations))
	for i, mu := range mutations {
		err := m.Apply(ctx, mu, operator)
		results[i] = Result{
			Index:      i,
			Collection: mu.Collection(),
			OK:         err == nil,
			err:        err,
		}
		if err != nil {
			results[i].Code = bizerr.GetCode(err)
			results[i].Error = err.Error()
		}
	}
	return results
}
