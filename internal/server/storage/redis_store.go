package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/protocol"
)

const (
	// Redis key 前缀
	roomKeyPrefix  = "room:"
	activeRoomsKey = "rooms:active"

	// RoomEventsChannel 房间事件发布频道
	RoomEventsChannel = "muuzika:room-events"

	eventQueueSize = 1024
	writeTimeout   = 2 * time.Second

	// 房间关闭后一段时间内仍丢弃迟到的快照
	tombstoneTTL = time.Minute
)

// RoomEvent 发布到 Redis 的房间事件
type RoomEvent struct {
	Type    string `json:"type"` // updated / closed
	Code    string `json:"code"`
	Version uint64 `json:"version,omitempty"`
}

type storeEvent struct {
	closed bool
	code   string
	room   protocol.RoomDTO
}

// RedisStore 将房间快照写入 Redis，供运维查看和其他实例订阅。
// 作为房间变化的接收方时只入队，由 Run 顺序写入。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	clock  clockwork.Clock

	events chan storeEvent

	// 以下字段只在 Run 的 goroutine 中访问
	versions   map[string]uint64
	tombstones map[string]time.Time
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client, ttl time.Duration, clk clockwork.Clock) *RedisStore {
	return &RedisStore{
		client:     client,
		ttl:        ttl,
		clock:      clk,
		events:     make(chan storeEvent, eventQueueSize),
		versions:   make(map[string]uint64),
		tombstones: make(map[string]time.Time),
	}
}

// --- 房间变化接收 ---

func (rs *RedisStore) RoomUpdated(room protocol.RoomDTO) {
	rs.enqueue(storeEvent{code: room.Code, room: room})
}

func (rs *RedisStore) RoomClosed(code string) {
	rs.enqueue(storeEvent{closed: true, code: code})
}

func (rs *RedisStore) enqueue(ev storeEvent) {
	select {
	case rs.events <- ev:
	default:
		log.Warn().Str("room", ev.code).Msg("⚠️ 快照队列已满，丢弃房间事件")
	}
}

// Run 顺序处理房间事件，ctx 结束后处理完队列中剩余的事件再返回
func (rs *RedisStore) Run(ctx context.Context) {
	for {
		select {
		case ev := <-rs.events:
			rs.handle(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-rs.events:
					rs.handle(ev)
				default:
					return
				}
			}
		}
	}
}

func (rs *RedisStore) handle(ev storeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if ev.closed {
		delete(rs.versions, ev.code)
		rs.tombstones[ev.code] = rs.clock.Now()
		rs.pruneTombstones()
		if err := rs.DeleteRoom(ctx, ev.code); err != nil {
			log.Error().Err(err).Str("room", ev.code).Msg("❗ 删除房间快照失败")
		}
		return
	}

	if at, ok := rs.tombstones[ev.code]; ok {
		// 新房间复用房间号时版本从头开始
		if rs.clock.Since(at) < tombstoneTTL {
			return
		}
		delete(rs.tombstones, ev.code)
	}
	if ev.room.Version <= rs.versions[ev.code] {
		return
	}
	rs.versions[ev.code] = ev.room.Version

	if err := rs.SaveRoom(ctx, &ev.room); err != nil {
		log.Error().Err(err).Str("room", ev.code).Msg("❗ 保存房间快照失败")
	}
}

func (rs *RedisStore) pruneTombstones() {
	for code, at := range rs.tombstones {
		if rs.clock.Since(at) >= tombstoneTTL {
			delete(rs.tombstones, code)
		}
	}
}

// --- 房间存储 ---

// SaveRoom 保存房间快照并发布更新事件
func (rs *RedisStore) SaveRoom(ctx context.Context, room *protocol.RoomDTO) error {
	if room == nil {
		return nil
	}

	jsonData, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("序列化房间数据失败: %w", err)
	}
	event, err := json.Marshal(RoomEvent{Type: "updated", Code: room.Code, Version: room.Version})
	if err != nil {
		return fmt.Errorf("序列化房间事件失败: %w", err)
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, roomKeyPrefix+room.Code, jsonData, rs.ttl)
	pipe.SAdd(ctx, activeRoomsKey, room.Code)
	pipe.Publish(ctx, RoomEventsChannel, event)
	_, err = pipe.Exec(ctx)
	return err
}

// LoadRoom 从 Redis 加载房间快照，不存在时返回 nil
func (rs *RedisStore) LoadRoom(ctx context.Context, code string) (*protocol.RoomDTO, error) {
	data, err := rs.client.Get(ctx, roomKeyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var room protocol.RoomDTO
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("反序列化房间数据失败: %w", err)
	}
	return &room, nil
}

// DeleteRoom 删除房间快照并发布关闭事件
func (rs *RedisStore) DeleteRoom(ctx context.Context, code string) error {
	event, err := json.Marshal(RoomEvent{Type: "closed", Code: code})
	if err != nil {
		return fmt.Errorf("序列化房间事件失败: %w", err)
	}

	pipe := rs.client.TxPipeline()
	pipe.Del(ctx, roomKeyPrefix+code)
	pipe.SRem(ctx, activeRoomsKey, code)
	pipe.Publish(ctx, RoomEventsChannel, event)
	_, err = pipe.Exec(ctx)
	return err
}

// ActiveRoomCodes 获取所有活跃房间号
func (rs *RedisStore) ActiveRoomCodes(ctx context.Context) ([]string, error) {
	return rs.client.SMembers(ctx, activeRoomsKey).Result()
}

// Ping 检查 Redis 连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}
