// Package server WebSocket 与 HTTP 服务：连接安全检查、客户端读写协程和只读 HTTP 接口。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/party-games/internal/auth"
	"github.com/palemoky/party-games/internal/config"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/scheduler"
	"github.com/palemoky/party-games/internal/server/handler"
	"github.com/palemoky/party-games/internal/storage"
)

const (
	statsInterval        = 30 * time.Second
	limiterSweepInterval = 5 * time.Minute
	requestTimeout       = 10 * time.Second
)

// Deps 服务器依赖，由 cmd/server 组装
type Deps struct {
	Redis       *redis.Client
	Rooms       *room.Directory
	Games       []handler.GameService
	Leaderboard *storage.Leaderboard
	Issuer      *auth.Issuer
}

// Server WebSocket 服务器
type Server struct {
	config      *config.Config
	redis       *redis.Client
	rooms       *room.Directory
	leaderboard *storage.Leaderboard
	issuer      *auth.Issuer
	handler     *handler.Handler
	upgrader    websocket.Upgrader

	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 安全组件
	connLimiter    *ConnLimiter
	messageLimiter *MessageLimiter
	originChecker  *OriginChecker
	ipFilter       *IPFilter

	// 连接控制
	maxConnections int
	semaphore      chan struct{}

	maintenance atomic.Bool

	httpServer *http.Server
	tasks      []*scheduler.Task
}

// NewServer 创建服务器实例，并把游戏服务注册到房间目录；IP 名单配置有误时返回错误
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	sec := cfg.Security
	ipFilter, err := NewIPFilter(sec.AllowedIPs, sec.BlockedIPs, sec.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("security config: %w", err)
	}

	s := &Server{
		config:         cfg,
		redis:          deps.Redis,
		rooms:          deps.Rooms,
		leaderboard:    deps.Leaderboard,
		issuer:         deps.Issuer,
		clients:        make(map[string]*Client),
		connLimiter:    NewConnLimiter(sec.RateLimit),
		messageLimiter: NewMessageLimiter(sec.MessageLimit),
		originChecker:  NewOriginChecker(sec.AllowedOrigins),
		ipFilter:       ipFilter,
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 来源在升级前已由 originChecker 校验
		CheckOrigin: func(*http.Request) bool { return true },
	}

	var board handler.Leaderboard
	if deps.Leaderboard != nil {
		board = deps.Leaderboard
	}
	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server:      s,
		Rooms:       deps.Rooms,
		Games:       deps.Games,
		Leaderboard: board,
		Issuer:      deps.Issuer,
	})

	logger.Infof("🔒 安全配置: 连接限制=%d/s, 消息限制=%d/s, 动作限制=%d/s, 房间操作=%d/min, 最大连接数=%d",
		sec.RateLimit.MaxPerSecond, sec.MessageLimit.MaxPerSecond, sec.MessageLimit.ActionsPerSecond,
		sec.MessageLimit.RoomOpsPerMinute, cfg.Server.MaxConnections)
	return s, nil
}

// Router 返回 HTTP 路由
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleWebSocket)
	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/rooms", s.handleListRooms)
		r.Get("/leaderboard/{game}", s.handleLeaderboard)
		r.Get("/history/{game}", s.handleHistory)
	})
	return r
}

// StartBackground 启动监控、限流器清理和房间清理任务，ctx 取消后全部停止
func (s *Server) StartBackground(ctx context.Context) {
	s.tasks = append(s.tasks,
		scheduler.Every(ctx, statsInterval, func(context.Context) bool {
			s.logStats()
			return true
		}),
		startSweeping(ctx, limiterSweepInterval, s.connLimiter, s.messageLimiter),
		s.rooms.StartCleanup(ctx, s.config.Game.CleanupInterval()),
	)
}

// Start 启动服务器，阻塞直到服务器关闭
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.StartBackground(ctx)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Infof("🚀 服务器启动在 ws://%s/ws (CPU核心数: %d)", addr, runtime.NumCPU())
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// logStats 输出服务器状态
func (s *Server) logStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	logger.Infof("📊 [监控] 在线: %d | Goroutines: %d | 活跃连接: %d/%d | 内存: %.2f MB",
		s.GetOnlineCount(),
		runtime.NumGoroutine(),
		len(s.semaphore),
		s.maxConnections,
		float64(m.Alloc)/1024/1024)
}
