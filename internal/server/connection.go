package server

import (
	"context"
	"net/http"

	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/types"
)

// handleWebSocket 处理 WebSocket 连接。
// 连接时可通过 ?token= 携带身份令牌，?name= 携带昵称。
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := s.ipFilter.ClientIP(r)
	log := logger.WithField("ip", clientIP)

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		log.Info("🔧 维护模式，拒绝新连接")
		http.Error(w, "Server is under maintenance, please try again later", http.StatusServiceUnavailable)
		return
	}

	// 连接数限制，连接关闭时释放
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Warnf("🚫 达到最大连接数限制 (%d)", s.maxConnections)
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}
	release := func() { <-s.semaphore }

	if !s.ipFilter.IsAllowed(clientIP) {
		release()
		log.Warn("🚫 IP 被过滤器拒绝")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if !s.originChecker.Check(r) {
		release()
		log.Warnf("🚫 来源验证失败: %s", r.Header.Get("Origin"))
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	// 带合法令牌的老玩家额外按 uid 限流，换 IP 也无法绕过
	rawToken := r.URL.Query().Get("token")
	var knownUID string
	if rawToken != "" {
		if known, err := s.issuer.Validate(rawToken); err == nil {
			knownUID = known.UID
		}
	}
	if !s.connLimiter.Allow(clientIP, knownUID) {
		release()
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	id, token, err := s.issuer.Resume(rawToken, r.URL.Query().Get("name"))
	if err != nil {
		release()
		log.Errorf("❌ 签发令牌失败: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		release()
		log.Debugf("WebSocket 升级失败: %v", err)
		return
	}

	client := NewClient(s, conn)
	client.IP = clientIP
	client.SetIdentity(id.UID, id.Name, token)
	s.registerClient(client)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	s.handler.Welcome(ctx, client)
	cancel()

	log.WithField("player", id.UID).Infof("✅ 玩家 %s 已连接", id.Name)

	go func() {
		defer release()
		client.ReadPump()
	}()
	go client.WritePump()
}

// registerClient 注册客户端，同 uid 的旧连接被踢下线
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	old := s.clients[client.GetID()]
	s.clients[client.GetID()] = client
	s.clientsMu.Unlock()

	if old != nil && old != client {
		logger.WithField("player", client.GetID()).Info("🔁 同一玩家重复连接，关闭旧连接")
		old.Close()
	}
}

// unregisterClient 注销客户端，只在登记的仍是该连接时删除
func (s *Server) unregisterClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	id := client.GetID()
	if s.clients[id] == client {
		delete(s.clients, id)
		logger.WithField("player", id).Infof("❌ 玩家 %s 已断开", client.GetName())
	}
}

// Rebind 身份变化后重新登记
func (s *Server) Rebind(oldID string, c types.ClientInterface) {
	client, ok := c.(*Client)
	if !ok {
		return
	}
	s.clientsMu.Lock()
	if s.clients[oldID] == client {
		delete(s.clients, oldID)
	}
	s.clientsMu.Unlock()
	s.registerClient(client)
}

// GetClientByID 按玩家 id 查找在线客户端
func (s *Server) GetClientByID(id string) *Client {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return s.clients[id]
}

var _ types.ServerInterface = (*Server)(nil)
