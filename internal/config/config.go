package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 1780
	defaultMaxConnections  = 10000
	defaultShutdownTimeout = 10 // 秒
	defaultSnapshotTTL     = 120
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
	defaultJwtMaxAge       = 24 // 小时
	defaultCodeLength      = 6
	defaultMaxCodeAttempts = 100
	defaultMinPlayers      = 1
	defaultIdleTimeout     = 120 // 分钟
	defaultSweepInterval   = 60  // 秒
	defaultRatePerSecond   = 5
	defaultRateBurst       = 10
	defaultMsgPerSecond    = 20
	defaultMsgBurst        = 40
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Log      LogConfig
	Jwt      JwtConfig
	Room     RoomConfig
	Security SecurityConfig
}

// ServerConfig HTTP / WebSocket 服务器配置
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	MaxConnections  int    `yaml:"max_connections"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // 优雅关闭超时（秒）
}

// RedisConfig Redis 配置，Addr 为空时不启用
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	SnapshotTTL int    `yaml:"snapshot_ttl"` // 房间快照过期时间（分钟）
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// JwtConfig 连接令牌配置
type JwtConfig struct {
	Key      string
	Issuer   string
	Audience string
	MaxAge   int // 小时
}

// RoomConfig 房间配置
type RoomConfig struct {
	DelayCloseRoomAfterLastPlayerLeft time.Duration
	DelayDisconnectedPlayerRemoval    time.Duration
	DefaultPossibleRoundTypes         RoundTypes
	DefaultRoundsCount                uint16
	DefaultRoundDuration              time.Duration
	DefaultMaxPlayersCount            uint16

	CodeLength        int
	MaxCodeAttempts   int
	MinPlayersToStart int
	IdleTimeout       int // 分钟
	SweepInterval     int // 秒
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string    `yaml:"allowed_origins"`
	RateLimit      LimitConfig `yaml:"rate_limit"`
	MessageLimit   LimitConfig `yaml:"message_limit"`
}

// LimitConfig 令牌桶参数
type LimitConfig struct {
	PerSecond int `yaml:"per_second"`
	Burst     int `yaml:"burst"`
}

// ShutdownTimeoutDuration 返回优雅关闭超时时长
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// SnapshotTTLDuration 返回房间快照过期时长
func (c *RedisConfig) SnapshotTTLDuration() time.Duration {
	return time.Duration(c.SnapshotTTL) * time.Minute
}

// MaxAgeDuration 返回令牌有效期
func (c *JwtConfig) MaxAgeDuration() time.Duration {
	return time.Duration(c.MaxAge) * time.Hour
}

// IdleTimeoutDuration 返回房间空闲超时时长
func (c *RoomConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Minute
}

// SweepIntervalDuration 返回空闲房间清理间隔
func (c *RoomConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

// fileConfig 配置文件的原始结构，必填项以字符串读取后再校验
type fileConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Jwt      rawJwt         `yaml:"jwt"`
	Room     rawRoom        `yaml:"room"`
	Security SecurityConfig `yaml:"security"`
}

type rawJwt struct {
	Key      string `yaml:"key"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
	MaxAge   int    `yaml:"max_age"`
}

type rawRoom struct {
	DelayCloseRoomAfterLastPlayerLeft string `yaml:"delay_close_room_after_last_player_left"`
	DelayDisconnectedPlayerRemoval    string `yaml:"delay_disconnected_player_removal"`
	DefaultPossibleRoundTypes         string `yaml:"default_possible_round_types"`
	DefaultRoundsCount                string `yaml:"default_rounds_count"`
	DefaultRoundDuration              string `yaml:"default_round_duration"`
	DefaultMaxPlayersCount            string `yaml:"default_max_players_count"`

	CodeLength        int `yaml:"code_length"`
	MaxCodeAttempts   int `yaml:"max_code_attempts"`
	MinPlayersToStart int `yaml:"min_players_to_start"`
	IdleTimeout       int `yaml:"idle_timeout"`
	SweepInterval     int `yaml:"sweep_interval"`
}

// Load 加载配置文件，环境变量优先于文件内容。
// 所有缺失或格式错误的配置项会一次性返回。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalidFormat, err)
	}

	var errs []error
	errs = append(errs, fc.applyEnv()...)
	fc.applyDefaults()

	cfg, buildErrs := fc.build()
	errs = append(errs, buildErrs...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// applyEnv 使用环境变量覆盖配置
func (fc *fileConfig) applyEnv() []error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	envString("SERVER_HOST", &fc.Server.Host)
	collect(envInt("SERVER_PORT", "server.port", &fc.Server.Port))
	collect(envInt("SERVER_MAX_CONNECTIONS", "server.max_connections", &fc.Server.MaxConnections))
	envString("REDIS_ADDR", &fc.Redis.Addr)
	envString("REDIS_PASSWORD", &fc.Redis.Password)
	envString("LOG_LEVEL", &fc.Log.Level)
	envString("LOG_FORMAT", &fc.Log.Format)

	envString("JWT_KEY", &fc.Jwt.Key)
	envString("JWT_ISSUER", &fc.Jwt.Issuer)
	envString("JWT_AUDIENCE", &fc.Jwt.Audience)

	envString("ROOM_DELAY_CLOSE_ROOM_AFTER_LAST_PLAYER_LEFT", &fc.Room.DelayCloseRoomAfterLastPlayerLeft)
	envString("ROOM_DELAY_DISCONNECTED_PLAYER_REMOVAL", &fc.Room.DelayDisconnectedPlayerRemoval)
	envString("ROOM_DEFAULT_POSSIBLE_ROUND_TYPES", &fc.Room.DefaultPossibleRoundTypes)
	envString("ROOM_DEFAULT_ROUNDS_COUNT", &fc.Room.DefaultRoundsCount)
	envString("ROOM_DEFAULT_ROUND_DURATION", &fc.Room.DefaultRoundDuration)
	envString("ROOM_DEFAULT_MAX_PLAYERS_COUNT", &fc.Room.DefaultMaxPlayersCount)
	collect(envInt("ROOM_MIN_PLAYERS_TO_START", "room.min_players_to_start", &fc.Room.MinPlayersToStart))

	if origins := os.Getenv("SECURITY_ALLOWED_ORIGINS"); origins != "" {
		fc.Security.AllowedOrigins = nil
		for o := range strings.SplitSeq(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				fc.Security.AllowedOrigins = append(fc.Security.AllowedOrigins, o)
			}
		}
	}
	return errs
}

// applyDefaults 为可选项设置默认值
func (fc *fileConfig) applyDefaults() {
	if fc.Server.Host == "" {
		fc.Server.Host = defaultHost
	}
	if fc.Server.Port == 0 {
		fc.Server.Port = defaultPort
	}
	if fc.Server.MaxConnections == 0 {
		fc.Server.MaxConnections = defaultMaxConnections
	}
	if fc.Server.ShutdownTimeout == 0 {
		fc.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if fc.Redis.SnapshotTTL == 0 {
		fc.Redis.SnapshotTTL = defaultSnapshotTTL
	}
	if fc.Log.Level == "" {
		fc.Log.Level = defaultLogLevel
	}
	if fc.Log.Format == "" {
		fc.Log.Format = defaultLogFormat
	}
	if fc.Jwt.MaxAge == 0 {
		fc.Jwt.MaxAge = defaultJwtMaxAge
	}
	if fc.Room.CodeLength == 0 {
		fc.Room.CodeLength = defaultCodeLength
	}
	if fc.Room.MaxCodeAttempts == 0 {
		fc.Room.MaxCodeAttempts = defaultMaxCodeAttempts
	}
	if fc.Room.MinPlayersToStart == 0 {
		fc.Room.MinPlayersToStart = defaultMinPlayers
	}
	if fc.Room.IdleTimeout == 0 {
		fc.Room.IdleTimeout = defaultIdleTimeout
	}
	if fc.Room.SweepInterval == 0 {
		fc.Room.SweepInterval = defaultSweepInterval
	}
	if len(fc.Security.AllowedOrigins) == 0 {
		fc.Security.AllowedOrigins = []string{"*"}
	}
	if fc.Security.RateLimit.PerSecond == 0 {
		fc.Security.RateLimit.PerSecond = defaultRatePerSecond
	}
	if fc.Security.RateLimit.Burst == 0 {
		fc.Security.RateLimit.Burst = defaultRateBurst
	}
	if fc.Security.MessageLimit.PerSecond == 0 {
		fc.Security.MessageLimit.PerSecond = defaultMsgPerSecond
	}
	if fc.Security.MessageLimit.Burst == 0 {
		fc.Security.MessageLimit.Burst = defaultMsgBurst
	}
}

// build 校验必填项并生成最终配置
func (fc *fileConfig) build() (*Config, []error) {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := &Config{
		Server:   fc.Server,
		Redis:    fc.Redis,
		Log:      fc.Log,
		Security: fc.Security,
		Jwt:      JwtConfig{MaxAge: fc.Jwt.MaxAge},
		Room: RoomConfig{
			CodeLength:        fc.Room.CodeLength,
			MaxCodeAttempts:   fc.Room.MaxCodeAttempts,
			MinPlayersToStart: fc.Room.MinPlayersToStart,
			IdleTimeout:       fc.Room.IdleTimeout,
			SweepInterval:     fc.Room.SweepInterval,
		},
	}

	var err error
	cfg.Jwt.Key, err = requireString("jwt.key", fc.Jwt.Key)
	check(err)
	cfg.Jwt.Issuer, err = requireString("jwt.issuer", fc.Jwt.Issuer)
	check(err)
	cfg.Jwt.Audience, err = requireString("jwt.audience", fc.Jwt.Audience)
	check(err)

	r := &fc.Room
	cfg.Room.DelayCloseRoomAfterLastPlayerLeft, err = requireDuration("room.delay_close_room_after_last_player_left", r.DelayCloseRoomAfterLastPlayerLeft)
	check(err)
	cfg.Room.DelayDisconnectedPlayerRemoval, err = requireDuration("room.delay_disconnected_player_removal", r.DelayDisconnectedPlayerRemoval)
	check(err)
	cfg.Room.DefaultPossibleRoundTypes, err = requireRoundTypes("room.default_possible_round_types", r.DefaultPossibleRoundTypes)
	check(err)
	cfg.Room.DefaultRoundsCount, err = requireUint16("room.default_rounds_count", r.DefaultRoundsCount)
	check(err)
	cfg.Room.DefaultRoundDuration, err = requireDuration("room.default_round_duration", r.DefaultRoundDuration)
	check(err)
	cfg.Room.DefaultMaxPlayersCount, err = requireUint16("room.default_max_players_count", r.DefaultMaxPlayersCount)
	check(err)

	// 可选整数项在填充默认值后必须为正数
	positives := []struct {
		key   string
		value int
	}{
		{"server.max_connections", cfg.Server.MaxConnections},
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeout},
		{"redis.snapshot_ttl", cfg.Redis.SnapshotTTL},
		{"jwt.max_age", cfg.Jwt.MaxAge},
		{"room.code_length", cfg.Room.CodeLength},
		{"room.max_code_attempts", cfg.Room.MaxCodeAttempts},
		{"room.min_players_to_start", cfg.Room.MinPlayersToStart},
		{"room.idle_timeout", cfg.Room.IdleTimeout},
		{"room.sweep_interval", cfg.Room.SweepInterval},
		{"security.rate_limit.per_second", cfg.Security.RateLimit.PerSecond},
		{"security.rate_limit.burst", cfg.Security.RateLimit.Burst},
		{"security.message_limit.per_second", cfg.Security.MessageLimit.PerSecond},
		{"security.message_limit.burst", cfg.Security.MessageLimit.Burst},
	}
	for _, p := range positives {
		if p.value < 1 {
			check(invalid(p.key, "positive int", strconv.Itoa(p.value)))
		}
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		check(invalid("server.port", "port", strconv.Itoa(cfg.Server.Port)))
	}

	return cfg, errs
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func envInt(name, key string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return invalid(key, "int", v)
	}
	*dst = n
	return nil
}
