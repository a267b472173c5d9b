package protocol

// --- HTTP 请求/响应 ---

// CreateOrJoinRoomRequest 创建或加入房间请求
type CreateOrJoinRoomRequest struct {
	Username     string `json:"username"`
	CaptchaToken string `json:"captchaToken,omitempty"`
}

// RoomCreatedOrJoinedResponse 创建或加入房间响应
type RoomCreatedOrJoinedResponse struct {
	Username string `json:"username"`
	RoomCode string `json:"roomCode"`
	Token    string `json:"token"`
}

// --- 实时通道 ---

// PlayerDTO 玩家快照
type PlayerDTO struct {
	Username    string `json:"username"`
	Score       uint   `json:"score"`
	IsConnected bool   `json:"isConnected"`
}

// RoomOptionsDTO 房间选项快照
type RoomOptionsDTO struct {
	PossibleRoundTypes string `json:"possibleRoundTypes"`
	RoundsCount        uint16 `json:"roundsCount"`
	RoundDurationMs    int64  `json:"roundDurationMs"`
	MaxPlayersCount    uint16 `json:"maxPlayersCount"`
}

// RoomDTO 房间快照，Version 单调递增，客户端应丢弃旧版本
type RoomDTO struct {
	Code           string         `json:"code"`
	LeaderUsername string         `json:"leaderUsername"`
	Status         string         `json:"status"`
	Players        []PlayerDTO    `json:"players"`
	Options        RoomOptionsDTO `json:"options"`
	Round          int            `json:"round"`
	Version        uint64         `json:"version"`
}

// FindPlayer 按用户名查找玩家快照
func (r *RoomDTO) FindPlayer(username string) (PlayerDTO, bool) {
	for _, p := range r.Players {
		if p.Username == username {
			return p, true
		}
	}
	return PlayerDTO{}, false
}

// StateSync 某个玩家视角的完整状态
type StateSync struct {
	Room   RoomDTO   `json:"room"`
	Player PlayerDTO `json:"player"`
}

// RoomClosedPayload 房间关闭通知
type RoomClosedPayload struct {
	RoomCode string `json:"roomCode"`
}

// ErrorPayload 错误信息
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// InvocationResult 调用结果
type InvocationResult struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// PingPayload 心跳
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"clientTimestamp"`
	ServerTimestamp int64 `json:"serverTimestamp"`
}
