package server

import (
	"context"
	"time"

	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

const shutdownCheckInterval = 5 * time.Second

// EnterMaintenanceMode 进入维护模式：拒绝新连接，停止开房和加入
func (s *Server) EnterMaintenanceMode() {
	if s.maintenance.Swap(true) {
		return
	}
	s.Broadcast(codec.NewErrorMessageWithText(protocol.ErrCodeServerMaintenance, "👷🏻‍♂️ 维护模式：停止新的房间创建"))
	logger.Infof("🔧 进入维护模式：停止新连接和房间创建")
}

// ExitMaintenanceMode 退出维护模式
func (s *Server) ExitMaintenanceMode() {
	if s.maintenance.Swap(false) {
		logger.Infof("✅ 退出维护模式")
	}
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	return s.maintenance.Load()
}

// GracefulShutdown 进入维护模式，等进行中的对局结束或超时后关闭
func (s *Server) GracefulShutdown(ctx context.Context, timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		active, err := s.rooms.Count(ctx, room.StatusPlaying)
		if err != nil {
			logger.Warnf("⚠️ 统计进行中房间失败: %v", err)
			break
		}
		if active == 0 {
			logger.Infof("✅ 所有房间已结束")
			break
		}
		logger.Infof("⏳ 等待 %d 个房间结束...", active)

		select {
		case <-ctx.Done():
			s.Shutdown(context.Background())
			return
		case <-time.After(min(shutdownCheckInterval, time.Until(deadline))):
		}
	}

	s.Broadcast(codec.NewErrorMessageWithText(protocol.ErrCodeServerMaintenance, "🚧 服务器即将停机维护！"))
	s.Shutdown(ctx)
}

// Shutdown 关闭 HTTP 服务、所有客户端连接和后台任务
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logger.Warnf("⚠️ 关闭 HTTP 服务失败: %v", err)
		}
	}

	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.Unlock()

	for _, task := range s.tasks {
		task.Stop()
	}
	logger.Infof("👋 服务器已关闭 (在线 %d)", s.GetOnlineCount())
}
