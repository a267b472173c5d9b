//go:build !production

package room

import "sync"

// SequenceCodes 按顺序返回预设房间号的生成器，用完后重复最后一个
type SequenceCodes struct {
	codes []string
	next  int
	mu    sync.Mutex
}

// NewSequenceCodes 创建预设房间号生成器
func NewSequenceCodes(codes ...string) *SequenceCodes {
	return &SequenceCodes{codes: codes}
}

func (s *SequenceCodes) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.codes[min(s.next, len(s.codes)-1)]
	s.next++
	return code
}

// Calls 已生成次数
func (s *SequenceCodes) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
