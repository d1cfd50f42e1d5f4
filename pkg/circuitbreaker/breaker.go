// Package circuitbreaker 提供远程调用熔断器
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen 熔断器打开
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭状态 (正常)
	StateClosed State = iota
	// StateOpen 打开状态 (熔断)
	StateOpen
	// StateHalfOpen 半开状态 (尝试恢复)
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config 熔断器配置
type Config struct {
	// 连续失败多少次后打开熔断器
	FailureThreshold int
	// 半开状态下连续成功多少次后关闭熔断器
	SuccessThreshold int
	// 熔断器打开后多久进入半开状态
	Timeout time.Duration
	// 半开状态最大请求数
	MaxHalfOpenRequests int
	// 时间源, 为空时使用 time.Now
	Now func() time.Time
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 3,
	}
}

// CircuitBreaker 熔断器
type CircuitBreaker struct {
	config *Config
	now    func() time.Time

	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	lastFailureTime  time.Time
	halfOpenRequests int
}

// New 创建熔断器
func New(config *Config) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxHalfOpenRequests <= 0 {
		config.MaxHalfOpenRequests = 1
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		config: config,
		now:    now,
		state:  StateClosed,
	}
}

// State 获取当前状态
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// currentState 获取当前状态 (调用方持锁)
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && cb.now().Sub(cb.lastFailureTime) >= cb.config.Timeout {
		return StateHalfOpen
	}
	return cb.state
}

// Allow 检查是否允许请求通过
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.state == StateOpen {
			cb.state = StateHalfOpen
			cb.successes = 0
			cb.halfOpenRequests = 0
		}
		if cb.halfOpenRequests >= cb.config.MaxHalfOpenRequests {
			return ErrCircuitOpen
		}
		cb.halfOpenRequests++
		return nil
	default:
		return nil
	}
}

// Success 记录成功
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.successes = 0
			cb.halfOpenRequests = 0
		}
	}
}

// Failure 记录失败
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.lastFailureTime = cb.now()
		}
	case StateHalfOpen:
		// 半开状态下失败，回到打开状态
		cb.state = StateOpen
		cb.lastFailureTime = cb.now()
		cb.successes = 0
		cb.halfOpenRequests = 0
	}
}

// Reset 重置熔断器
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenRequests = 0
}
