package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/config"
	"github.com/palemoky/muuzika/internal/game/coordinator"
	"github.com/palemoky/muuzika/internal/game/room"
	"github.com/palemoky/muuzika/internal/logger"
	"github.com/palemoky/muuzika/internal/server"
	"github.com/palemoky/muuzika/internal/server/session"
	"github.com/palemoky/muuzika/internal/server/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 配置错误直接退出
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("加载配置文件失败")
	}
	if err := logger.Init(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("初始化日志失败")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clockwork.NewRealClock()
	hub := server.NewHub()
	notifiers := coordinator.Notifiers{hub}

	var (
		rdb    *redis.Client
		mirror server.Mirror
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		store := storage.NewRedisStore(rdb, cfg.Redis.SnapshotTTLDuration(), clk)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := store.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis 连接失败")
		}

		mirror = store
		notifiers = append(notifiers, store)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("📦 房间快照写入 Redis")
	}

	registry := room.NewRegistry(room.NewCodeGenerator(cfg.Room.CodeLength), cfg.Room.MaxCodeAttempts, clk)
	issuer := session.NewIssuer(cfg.Jwt, clk)
	coord := coordinator.New(cfg.Room, registry, issuer, clk, notifiers)

	srv := server.NewServer(cfg, server.Deps{
		Rooms: coord,
		Hub:   hub,
		Clock: clk,
		Redis: rdb,
		Store: mirror,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		log.Info().Msg("正在关闭服务器...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
		defer cancel()
		srv.GracefulShutdown(shutdownCtx)
	}()

	log.Info().Msg("🎵 Muuzika 服务器启动中...")
	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("服务器启动失败")
		os.Exit(1)
	}

	// 等待关闭流程完成
	<-done
}
