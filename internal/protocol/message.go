package protocol

import "encoding/json"

// Message 基础消息结构。ID 由客户端生成，服务端在调用结果中原样返回
type Message struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 调用
const (
	MsgPing         MessageType = "ping"          // 心跳
	MsgSyncAll      MessageType = "sync_all"      // 拉取完整状态
	MsgLeave        MessageType = "leave"         // 离开房间
	MsgAdvanceRound MessageType = "advance_round" // 房主推进回合
	MsgSubmitAnswer MessageType = "submit_answer" // 提交答案
)

// 服务端 → 客户端
const (
	MsgResult     MessageType = "result"      // 调用结果
	MsgPong       MessageType = "pong"        // 心跳响应
	MsgStateSync  MessageType = "state_sync"  // 房间状态推送
	MsgRoomClosed MessageType = "room_closed" // 房间已关闭
	MsgError      MessageType = "error"       // 非调用类错误（限流等）
)
