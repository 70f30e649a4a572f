package main

import (
	"context"
	"flag"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/party-games/internal/auth"
	"github.com/palemoky/party-games/internal/config"
	"github.com/palemoky/party-games/internal/docstore"
	"github.com/palemoky/party-games/internal/game/battleships"
	"github.com/palemoky/party-games/internal/game/codenames"
	"github.com/palemoky/party-games/internal/game/ohpardon"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/game/triviatoe"
	"github.com/palemoky/party-games/internal/gamesync"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/server"
	"github.com/palemoky/party-games/internal/server/handler"
	"github.com/palemoky/party-games/internal/storage"
)

const (
	// SIGTERM 时等待进行中对局的最长时间
	drainTimeout = 10 * time.Minute
	shutdownWait = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	envPath := flag.String("env", ".env", "环境变量文件路径")
	flag.Parse()

	// .env 不存在时直接使用进程环境变量
	_ = godotenv.Load(*envPath)

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}
	if err := logger.Init(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON}); err != nil {
		logger.Errorf("❌ 初始化日志失败: %v", err)
		os.Exit(1)
	}
	defer logger.Close()
	if err != nil {
		logger.Warnf("⚠️ 加载配置文件失败，使用默认配置: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		logger.Errorf("❌ 连接 Redis 失败 (%s): %v", cfg.Redis.Addr, err)
		os.Exit(1)
	}
	logger.Infof("✅ 已连接 Redis %s", cfg.Redis.Addr)

	store := docstore.NewRedisStore(rdb, docstore.WithTTL(cfg.Game.RoomTTLDuration()))
	rooms := room.NewDirectory(store,
		room.WithBcryptCost(cfg.Game.BcryptCost),
		room.WithRoomTimeout(cfg.Game.RoomTimeoutDuration()),
	)
	board := storage.NewLeaderboard(rdb)

	issuer, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTLDuration())
	if err != nil {
		logger.Errorf("❌ 创建令牌签发器失败: %v", err)
		os.Exit(1)
	}
	if cfg.Auth.Secret == "" {
		logger.Warnf("⚠️ 未配置 PARTY_AUTH_SECRET，令牌在重启后失效")
	}

	retry := gamesync.DefaultRetry
	retry.Attempts = cfg.Game.RetryAttempts
	seed := uint64(time.Now().UnixNano())
	newRand := func(stream uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, stream)) }

	trivia := triviatoe.NewService(store, retry, board, newRand(4))
	defer trivia.Close()

	srv, err := server.NewServer(cfg, server.Deps{
		Redis: rdb,
		Rooms: rooms,
		Games: []handler.GameService{
			battleships.NewService(store, retry, board, newRand(1)),
			ohpardon.NewService(store, retry, board, newRand(2)),
			codenames.NewService(store, retry, board, newRand(3), codenames.Words()),
			trivia,
		},
		Leaderboard: board,
		Issuer:      issuer,
	})
	if err != nil {
		logger.Errorf("❌ 创建服务器失败: %v", err)
		os.Exit(1)
	}

	// SIGTERM 等对局结束后关闭，SIGINT 立即关闭，SIGUSR1/SIGUSR2 切换维护模式
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range signals {
			switch sig {
			case syscall.SIGUSR1:
				srv.EnterMaintenanceMode()
				continue
			case syscall.SIGUSR2:
				srv.ExitMaintenanceMode()
				continue
			case syscall.SIGTERM:
				logger.Infof("🛑 收到 SIGTERM，等待对局结束后关闭...")
				srv.GracefulShutdown(ctx, drainTimeout)
			default:
				logger.Infof("🛑 正在关闭服务器...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
				srv.Shutdown(shutdownCtx)
				cancel()
			}
			stop()
			return
		}
	}()

	logger.Infof("🎮 派对游戏服务器启动中...")
	if err := srv.Start(ctx); err != nil {
		logger.Errorf("❌ 服务器启动失败: %v", err)
		os.Exit(1)
	}
}
