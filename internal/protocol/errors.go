package protocol

// 错误码
const (
	ErrCodeUnknown           = 1000
	ErrCodeInvalidMsg        = 1001
	ErrCodeRateLimit         = 1002 // 速率限制
	ErrCodeUnauthorized      = 1003 // 令牌无效（对外统一）
	ErrCodeNotFound          = 1004 // 房间或玩家不存在（对外统一）
	ErrCodeInvalidUsername   = 2001
	ErrCodeRoomNotFound      = 2002
	ErrCodeRoomFull          = 2003
	ErrCodeUsernameTaken     = 2004
	ErrCodeRoomNotJoinable   = 2005 // 房间已开始
	ErrCodePlayerNotFound    = 2006
	ErrCodeNotLeader         = 3001
	ErrCodeInvalidTransition = 3002
	ErrCodeInvalidToken      = 4001
	ErrCodeMalformedToken    = 4002
	ErrCodeInvalidSignature  = 4003
	ErrCodeTokenExpired      = 4004
	ErrCodeInternal          = 5000
	ErrCodeCodeExhausted     = 5001 // 房间号耗尽
	ErrCodeInvariant         = 5002 // 房间状态异常
	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "unknown error",
	ErrCodeInvalidMsg:        "invalid message",
	ErrCodeRateLimit:         "too many requests",
	ErrCodeUnauthorized:      "unauthorized",
	ErrCodeNotFound:          "not found",
	ErrCodeInvalidUsername:   "invalid username",
	ErrCodeRoomNotFound:      "room not found",
	ErrCodeRoomFull:          "room is full",
	ErrCodeUsernameTaken:     "username already taken",
	ErrCodeRoomNotJoinable:   "room is not accepting players",
	ErrCodePlayerNotFound:    "player not found",
	ErrCodeNotLeader:         "only the leader can do this",
	ErrCodeInvalidTransition: "not allowed in the current room state",
	ErrCodeInvalidToken:      "invalid token",
	ErrCodeMalformedToken:    "malformed token",
	ErrCodeInvalidSignature:  "invalid token signature",
	ErrCodeTokenExpired:      "token expired",
	ErrCodeInternal:          "internal error",
	ErrCodeCodeExhausted:     "no room code available",
	ErrCodeInvariant:         "room closed after an internal error",
	ErrCodeServerMaintenance: "server under maintenance",
}
