package room

import "slices"

// Status 房间状态
type Status string

const (
	StatusInLobby         Status = "InLobby"
	StatusRoundInProgress Status = "RoundInProgress"
	StatusRoundResults    Status = "RoundResults"
	StatusClosed          Status = "Closed"
)

// transitions 允许的状态迁移，Closed 为终态
var transitions = map[Status][]Status{
	StatusInLobby:         {StatusRoundInProgress, StatusClosed},
	StatusRoundInProgress: {StatusRoundResults, StatusClosed},
	StatusRoundResults:    {StatusRoundInProgress, StatusClosed},
}

// CanTransitionTo 判断是否允许迁移到 next
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}
