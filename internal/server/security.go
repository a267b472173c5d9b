package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/palemoky/muuzika/internal/config"
)

// RateLimiter 按 IP 的令牌桶限流器
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex

	limit rate.Limit
	burst int
	clock clockwork.Clock
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(cfg config.LimitConfig, clk clockwork.Clock) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(cfg.PerSecond),
		burst:    cfg.Burst,
		clock:    clk,
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	if !v.limiter.AllowN(now, 1) {
		log.Warn().Str("ip", ip).Msg("⚠️ 请求过于频繁")
		return false
	}
	return true
}

// Cleanup 清理长时间没有请求的记录，返回清理数量
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, v := range rl.visitors {
		if rl.clock.Since(v.lastSeen) > maxIdle {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

// Len 当前记录的 IP 数
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// MessageLimiter 单个连接的消息限流，连续超限过多时应断开连接
type MessageLimiter struct {
	limiter  *rate.Limiter
	clock    clockwork.Clock
	warnings int
}

// maxMessageWarnings 连续超限次数上限
const maxMessageWarnings = 5

// NewMessageLimiter 创建消息限流器
func NewMessageLimiter(cfg config.LimitConfig, clk clockwork.Clock) *MessageLimiter {
	return &MessageLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.PerSecond), cfg.Burst),
		clock:   clk,
	}
}

// Allow 返回是否允许本条消息，以及是否应断开连接。只在读协程中调用
func (ml *MessageLimiter) Allow() (allowed, disconnect bool) {
	if ml.limiter.AllowN(ml.clock.Now(), 1) {
		ml.warnings = 0
		return true, false
	}
	ml.warnings++
	return false, ml.warnings > maxMessageWarnings
}

// --- 来源验证 ---

// OriginChecker 来源验证器
type OriginChecker struct {
	allowedOrigins map[string]bool
	allowAll       bool
}

// NewOriginChecker 创建来源验证器
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{
		allowedOrigins: make(map[string]bool),
	}

	for _, origin := range origins {
		if origin == "*" {
			oc.allowAll = true
			return oc
		}
		oc.allowedOrigins[strings.ToLower(origin)] = true
	}

	return oc
}

// Check 检查来源是否允许
func (oc *OriginChecker) Check(r *http.Request) bool {
	if oc.allowAll {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		// 没有 Origin 头，可能是同源请求或本地客户端
		return true
	}

	return oc.allowedOrigins[strings.ToLower(origin)]
}

// AllowOrigin 供 CORS 中间件使用
func (oc *OriginChecker) AllowOrigin(origin string) bool {
	return oc.allowAll || oc.allowedOrigins[strings.ToLower(origin)]
}

// --- 辅助函数 ---

// GetClientIP 获取客户端真实 IP
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// 取第一个 IP（最原始的客户端）
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
