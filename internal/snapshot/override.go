package snapshot

// Override 单个配置段的映射结果: 要么远端覆盖, 要么沿用基线
type Override[T any] struct {
	value      T
	overridden bool
}

// Overridden 远端提供了该段
func Overridden[T any](value T) Override[T] {
	return Override[T]{value: value, overridden: true}
}

// UseBaseline 该段沿用基线
func UseBaseline[T any]() Override[T] {
	return Override[T]{}
}

// IsOverridden 是否被远端覆盖
func (o Override[T]) IsOverridden() bool {
	return o.overridden
}

// Value 返回覆盖值
func (o Override[T]) Value() (T, bool) {
	return o.value, o.overridden
}

// Or 覆盖时返回覆盖值, 否则返回 base
func (o Override[T]) Or(base T) T {
	if o.overridden {
		return o.value
	}
	return base
}
