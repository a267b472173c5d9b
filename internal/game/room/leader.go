package room

// ElectLeader 根据加入顺序和在线状态决定房主。
// 房主在线则保持；否则选房主之后（环绕）的第一个在线玩家；无人在线时保持原房主。
func ElectLeader(players []*Player, current string) string {
	if len(players) == 0 {
		return ""
	}
	idx := indexOf(players, current)
	if idx >= 0 && players[idx].Connected {
		return current
	}
	if next := Successor(players, idx+1); next != "" {
		return next
	}
	if idx >= 0 {
		return current
	}
	return players[0].Username
}

// Successor 从 start 开始按加入顺序（环绕）查找第一个在线玩家
func Successor(players []*Player, start int) string {
	n := len(players)
	if n == 0 {
		return ""
	}
	start = ((start % n) + n) % n
	for i := range n {
		if p := players[(start+i)%n]; p.Connected {
			return p.Username
		}
	}
	return ""
}

// leaderAfterRemoval 房主离开后，从其原位置开始选下一个在线玩家；
// 无人在线时由原位置上的玩家（处于断线宽限期）接任
func leaderAfterRemoval(players []*Player, formerIdx int) string {
	if len(players) == 0 {
		return ""
	}
	if next := Successor(players, formerIdx); next != "" {
		return next
	}
	return players[formerIdx%len(players)].Username
}

func indexOf(players []*Player, username string) int {
	for i, p := range players {
		if p.Username == username {
			return i
		}
	}
	return -1
}
