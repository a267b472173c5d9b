package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/config"
	"github.com/palemoky/muuzika/internal/logger"
	"github.com/palemoky/muuzika/internal/server/handler"
)

// Coordinator 服务器依赖的房间协调器
type Coordinator interface {
	handler.RoomService
	EnterMaintenance()
	Shutdown()
	Run(ctx context.Context)
}

// Mirror 房间快照镜像，Run 在 ctx 结束后写完队列再返回
type Mirror interface {
	Run(ctx context.Context)
}

// Deps 服务器依赖
type Deps struct {
	Rooms Coordinator
	Hub   *Hub
	Clock clockwork.Clock
	Redis *redis.Client // 可为 nil
	Store Mirror        // 可为 nil
}

// Server HTTP 与 WebSocket 服务器
type Server struct {
	config  *config.Config
	clock   clockwork.Clock
	rooms   Coordinator
	hub     *Hub
	handler *handler.Handler
	redis   *redis.Client

	// 快照镜像在房间全部关闭后才停止
	store       Mirror
	storeCtx    context.Context
	storeCancel context.CancelFunc
	storeDone   chan struct{}

	// 安全组件
	rateLimiter   *RateLimiter
	originChecker *OriginChecker
	upgrader      websocket.Upgrader

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	engine     *gin.Engine
	httpServer *http.Server
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		config:         cfg,
		clock:          deps.Clock,
		rooms:          deps.Rooms,
		hub:            deps.Hub,
		redis:          deps.Redis,
		store:          deps.Store,
		storeDone:      make(chan struct{}),
		rateLimiter:    NewRateLimiter(cfg.Security.RateLimit, deps.Clock),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
	}

	s.storeCtx, s.storeCancel = context.WithCancel(context.Background())

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originChecker.Check,
		// 消息都很小，压缩没有收益
		EnableCompression: false,
	}

	s.handler = handler.NewHandler(handler.HandlerDeps{
		Rooms: deps.Rooms,
		Hub:   deps.Hub,
		Clock: deps.Clock,
	})

	s.engine = s.routes()

	log.Info().
		Int("rate_limit", cfg.Security.RateLimit.PerSecond).
		Int("message_limit", cfg.Security.MessageLimit.PerSecond).
		Int("max_connections", cfg.Server.MaxConnections).
		Strs("origins", cfg.Security.AllowedOrigins).
		Msg("🔒 安全配置")

	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.LogPanic(recovered)
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	r.Use(requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: s.originChecker.AllowOrigin,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/health", s.handleHealth)
	r.GET("/stats", s.handleStats)

	rooms := r.Group("/room", s.rateLimit())
	rooms.POST("", s.handleCreateRoom)
	rooms.POST("/:code", s.handleJoinRoom)

	r.GET("/hub", s.handleHub)
	return r
}

// Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 启动后台任务和 HTTP 服务，阻塞直到服务器关闭
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.runStore()
	go s.rooms.Run(ctx)
	go s.monitorStats(ctx)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("addr", addr).Int("cpus", runtime.NumCPU()).Msgf("🚀 服务器启动在 ws://%s/hub", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runStore 启动快照镜像，使用独立的 ctx，由 GracefulShutdown 停止
func (s *Server) runStore() {
	if s.store == nil {
		return
	}
	go func() {
		defer close(s.storeDone)
		s.store.Run(s.storeCtx)
	}()
}

// requestLogger gin 请求日志
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("http")
	}
}

// rateLimit 按 IP 限流
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(GetClientIP(c.Request)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
