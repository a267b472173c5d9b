package room

import (
	"github.com/palemoky/muuzika/internal/protocol"
)

// DTO 玩家快照
func (p *Player) DTO() protocol.PlayerDTO {
	return protocol.PlayerDTO{
		Username:    p.Username,
		Score:       p.Score,
		IsConnected: p.Connected,
	}
}

// Snapshot 生成房间快照，调用方需持有锁
func (r *Room) Snapshot() protocol.RoomDTO {
	players := make([]protocol.PlayerDTO, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p.DTO())
	}

	return protocol.RoomDTO{
		Code:           r.Code,
		LeaderUsername: r.leader,
		Status:         string(r.status),
		Players:        players,
		Options: protocol.RoomOptionsDTO{
			PossibleRoundTypes: string(r.options.RoundTypes),
			RoundsCount:        r.options.RoundsCount,
			RoundDurationMs:    r.options.RoundDuration.Milliseconds(),
			MaxPlayersCount:    r.options.MaxPlayers,
		},
		Round:   r.round,
		Version: r.version,
	}
}

// StateFor 生成某个玩家视角的完整状态
func (r *Room) StateFor(username string) (protocol.StateSync, bool) {
	p := r.Player(username)
	if p == nil {
		return protocol.StateSync{}, false
	}
	return protocol.StateSync{Room: r.Snapshot(), Player: p.DTO()}, true
}
