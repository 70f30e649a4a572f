package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHost           = "0.0.0.0"
	defaultPort           = 1780
	defaultMaxConnections = 10000
	defaultRedisAddr      = "localhost:6379"

	defaultRoomTimeout   = 30 // 分钟
	defaultRoomTTL       = 24 // 小时
	defaultRetryAttempts = 5
	defaultCleanupEvery  = 60 // 秒
	defaultBcryptCost    = 10

	defaultConnPerSecond = 10
	defaultConnPerMinute = 60
	defaultBanDuration   = 300 // 秒
	defaultMsgPerSecond  = 20
	defaultActionsPerSec = 8
	defaultRoomOpsPerMin = 20

	defaultTokenTTL = 720 // 小时
	defaultLogLevel = "info"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GameConfig 房间与会话配置
type GameConfig struct {
	RoomTimeout   int `yaml:"room_timeout"`   // 等待中房间的存活时间（分钟）
	RoomTTL       int `yaml:"room_ttl"`       // 房间文档的 Redis 过期时间（小时）
	RetryAttempts int `yaml:"retry_attempts"` // 远端写入失败的最大尝试次数
	CleanupEvery  int `yaml:"cleanup_every"`  // 清理任务间隔（秒）
	BcryptCost    int `yaml:"bcrypt_cost"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"` // 支持 "*" 和 "*.example.com"
	AllowedIPs     []string           `yaml:"allowed_ips"`     // IP 或 CIDR，非空时只放行这些地址
	BlockedIPs     []string           `yaml:"blocked_ips"`     // IP 或 CIDR
	TrustedProxies []string           `yaml:"trusted_proxies"` // 只信任这些代理转发的 X-Forwarded-For
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 新连接速率限制，按 IP 和玩家 uid 分别计数
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// MessageLimitConfig 每个玩家的消息速率限制
type MessageLimitConfig struct {
	MaxPerSecond     int `yaml:"max_per_second"`      // 所有消息
	ActionsPerSecond int `yaml:"actions_per_second"`  // 游戏动作和分数提交
	RoomOpsPerMinute int `yaml:"room_ops_per_minute"` // 开房、加入、开局、再来一局
}

// AuthConfig 玩家令牌配置
type AuthConfig struct {
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"` // 小时
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RoomTimeoutDuration 返回等待中房间的存活时间
func (c *GameConfig) RoomTimeoutDuration() time.Duration {
	return time.Duration(c.RoomTimeout) * time.Minute
}

// RoomTTLDuration 返回房间文档过期时间
func (c *GameConfig) RoomTTLDuration() time.Duration {
	return time.Duration(c.RoomTTL) * time.Hour
}

// CleanupInterval 返回清理任务间隔
func (c *GameConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupEvery) * time.Second
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// TokenTTLDuration 返回令牌有效期
func (c *AuthConfig) TokenTTLDuration() time.Duration {
	return time.Duration(c.TokenTTL) * time.Hour
}

// Load 加载配置文件，然后应用环境变量覆盖
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.ApplyEnv()
	return &cfg, nil
}

// Default 返回默认配置（同样应用环境变量覆盖）
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.ApplyEnv()
	return cfg
}

func (c *Config) applyDefaults() {
	setDefault(&c.Server.Host, defaultHost)
	setDefault(&c.Server.Port, defaultPort)
	setDefault(&c.Server.MaxConnections, defaultMaxConnections)
	setDefault(&c.Redis.Addr, defaultRedisAddr)

	setDefault(&c.Game.RoomTimeout, defaultRoomTimeout)
	setDefault(&c.Game.RoomTTL, defaultRoomTTL)
	setDefault(&c.Game.RetryAttempts, defaultRetryAttempts)
	setDefault(&c.Game.CleanupEvery, defaultCleanupEvery)
	setDefault(&c.Game.BcryptCost, defaultBcryptCost)

	if len(c.Security.AllowedOrigins) == 0 {
		c.Security.AllowedOrigins = []string{"*"}
	}
	setDefault(&c.Security.RateLimit.MaxPerSecond, defaultConnPerSecond)
	setDefault(&c.Security.RateLimit.MaxPerMinute, defaultConnPerMinute)
	setDefault(&c.Security.RateLimit.BanDuration, defaultBanDuration)
	setDefault(&c.Security.MessageLimit.MaxPerSecond, defaultMsgPerSecond)
	setDefault(&c.Security.MessageLimit.ActionsPerSecond, defaultActionsPerSec)
	setDefault(&c.Security.MessageLimit.RoomOpsPerMinute, defaultRoomOpsPerMin)

	setDefault(&c.Auth.TokenTTL, defaultTokenTTL)
	setDefault(&c.Log.Level, defaultLogLevel)
}

func setDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// ApplyEnv 用 PARTY_* 环境变量覆盖配置
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PARTY_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PARTY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("PARTY_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("PARTY_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("PARTY_AUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("PARTY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PARTY_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for o := range strings.SplitSeq(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Security.AllowedOrigins = origins
	}
}
