package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/docstore"
	"github.com/palemoky/party-games/internal/logger"
)

const maxCodeAttempts = 20

// Hooks 游戏在开局和重开时生成初始状态
type Hooks struct {
	MinPlayers int
	// Start 生成开局状态
	Start func(r *Room) (docstore.Doc, error)
	// Reset 生成再来一局的状态，r.GameState 为上一局状态；为空时使用 Start
	Reset func(r *Room) (docstore.Doc, error)
}

// HostRequest 开房参数
type HostRequest struct {
	GameID   string
	RoomName string
	HostUID  string
	HostName string
	Password string
	Private  bool
}

// Directory 房间目录
type Directory struct {
	store       docstore.Store
	bcryptCost  int
	roomTimeout time.Duration
	now         func() time.Time
	newCode     func() string

	hooks   map[string]Hooks
	hooksMu sync.RWMutex
}

// Option 目录配置项
type Option func(*Directory)

// WithBcryptCost 密码哈希强度
func WithBcryptCost(cost int) Option {
	return func(d *Directory) { d.bcryptCost = cost }
}

// WithRoomTimeout 等待中房间的最长存活时间
func WithRoomTimeout(timeout time.Duration) Option {
	return func(d *Directory) { d.roomTimeout = timeout }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// WithCodeGenerator 替换房间号生成器
func WithCodeGenerator(gen func() string) Option {
	return func(d *Directory) { d.newCode = gen }
}

// NewDirectory 创建房间目录
func NewDirectory(store docstore.Store, opts ...Option) *Directory {
	d := &Directory{
		store:       store,
		bcryptCost:  bcrypt.DefaultCost,
		roomTimeout: 30 * time.Minute,
		now:         time.Now,
		newCode:     generateRoomCode,
		hooks:       make(map[string]Hooks),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register 注册游戏的开局/重开钩子
func (d *Directory) Register(gameID string, hooks Hooks) {
	d.hooksMu.Lock()
	defer d.hooksMu.Unlock()
	d.hooks[gameID] = hooks
}

func (d *Directory) hooksFor(gameID string) Hooks {
	d.hooksMu.RLock()
	defer d.hooksMu.RUnlock()
	h := d.hooks[gameID]
	if h.MinPlayers == 0 {
		h.MinPlayers = 2
	}
	return h
}

// generateRoomCode 生成 6 位数字房间号
func generateRoomCode() string {
	var b strings.Builder
	for range roomCodeLength {
		b.WriteByte(roomCodeChars[rand.IntN(len(roomCodeChars))])
	}
	return b.String()
}

// Host 创建房间，房主自动入座，返回房间号
func (d *Directory) Host(ctx context.Context, req HostRequest) (string, error) {
	if !IsMultiplayer(req.GameID) {
		return "", apperrors.ErrUnknownGame
	}

	var hash string
	if req.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(req.Password), d.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("hash room password: %w", err)
		}
		hash = string(h)
	}

	name := req.RoomName
	if name == "" {
		name = req.HostName + " 的房间"
	}

	for range maxCodeAttempts {
		code := d.newCode()
		r := &Room{
			Code:         code,
			GameID:       req.GameID,
			Name:         name,
			HostUID:      req.HostUID,
			HostName:     req.HostName,
			PasswordHash: hash,
			Private:      req.Private,
			Capacity:     Capacity(req.GameID),
			Players:      []Player{{UID: req.HostUID, Name: req.HostName}},
			Status:       StatusWaiting,
			CreatedAt:    d.now(),
		}
		err := d.store.Create(ctx, Key(code), r.ToDoc())
		if errors.Is(err, docstore.ErrExists) {
			continue
		}
		if err != nil {
			return "", storeError(err)
		}
		logger.WithField("room", code).WithField("game", req.GameID).
			Infof("🏠 房间 %s 已创建，房主 %s", code, req.HostName)
		return code, nil
	}
	return "", apperrors.ErrConflict
}

// Join 加入房间，返回游戏 ID。已在房间中时直接返回。
func (d *Directory) Join(ctx context.Context, code string, player Player, password string) (string, error) {
	var gameID string
	err := d.store.Transaction(ctx, Key(code), func(snap *docstore.Snapshot) (docstore.Updates, error) {
		r, err := decodeRoom(snap)
		if err != nil {
			return nil, err
		}
		gameID = r.GameID
		if r.HasPlayer(player.UID) {
			return nil, nil
		}
		if r.PasswordHash != "" {
			if bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(password)) != nil {
				return nil, apperrors.ErrWrongPassword
			}
		}
		if r.Status != StatusWaiting {
			return nil, apperrors.ErrGameStarted
		}
		if r.IsFull() {
			return nil, apperrors.ErrRoomFull
		}
		return docstore.Updates{"players": PlayersValue(append(r.Players, player))}, nil
	})
	if err != nil {
		return "", storeError(err)
	}
	logger.WithField("room", code).Infof("👤 玩家 %s 加入房间 %s", player.Name, code)
	return gameID, nil
}

// Get 读取房间
func (d *Directory) Get(ctx context.Context, code string) (*Room, error) {
	snap, err := d.store.Get(ctx, Key(code))
	if err != nil {
		return nil, storeError(err)
	}
	return FromSnapshot(snap)
}

// Delete 删除房间
func (d *Directory) Delete(ctx context.Context, code string) error {
	if err := d.store.Delete(ctx, Key(code)); err != nil {
		return storeError(err)
	}
	logger.WithField("room", code).Infof("🗑️ 房间 %s 已删除", code)
	return nil
}

// ListPublic 返回某个游戏可加入的公开房间，按创建时间排序
func (d *Directory) ListPublic(ctx context.Context, gameID string) ([]Summary, error) {
	rooms, err := d.list(ctx)
	if err != nil {
		return nil, err
	}
	out := []Summary{}
	for _, r := range rooms {
		if r.GameID == gameID && r.Joinable() {
			out = append(out, r.Summary())
		}
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return out, nil
}

// PublicRooms 实时推送可加入的公开房间列表，ctx 取消后关闭
func (d *Directory) PublicRooms(ctx context.Context, gameID string) (<-chan []Summary, error) {
	changes, err := d.store.WatchCollection(ctx, Collection)
	if err != nil {
		return nil, storeError(err)
	}
	first, err := d.ListPublic(ctx, gameID)
	if err != nil {
		return nil, err
	}

	out := make(chan []Summary, 1)
	out <- first
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				// 合并短时间内的多次变更
				drain(changes)
				list, err := d.ListPublic(ctx, gameID)
				if err != nil {
					logger.WithField("game", gameID).Warnf("⚠️ 刷新大厅失败: %v", err)
					continue
				}
				select {
				case out <- list:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Count 统计处于某个状态的房间数
func (d *Directory) Count(ctx context.Context, status Status) (int, error) {
	rooms, err := d.list(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rooms {
		if r.Status == status {
			n++
		}
	}
	return n, nil
}

func drain(ch <-chan string) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (d *Directory) list(ctx context.Context) ([]*Room, error) {
	snaps, err := d.store.List(ctx, Collection)
	if err != nil {
		return nil, storeError(err)
	}
	rooms := make([]*Room, 0, len(snaps))
	for _, snap := range snaps {
		r, err := FromSnapshot(snap)
		if err != nil {
			logger.WithField("room", snap.ID()).Warnf("⚠️ 跳过无法解析的房间: %v", err)
			continue
		}
		rooms = append(rooms, r)
	}
	return rooms, nil
}

// decodeRoom 在事务回调中解析房间，不存在时返回 ErrRoomNotFound
func decodeRoom(snap *docstore.Snapshot) (*Room, error) {
	if !snap.Exists {
		return nil, apperrors.ErrRoomNotFound
	}
	return FromSnapshot(snap)
}

// storeError 把存储层错误映射到游戏错误
func storeError(err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return apperrors.ErrRoomNotFound
	case errors.Is(err, docstore.ErrConflict):
		return apperrors.ErrConflict
	}
	return err
}
