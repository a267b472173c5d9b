package room

import "math/rand/v2"

const (
	defaultCodeLength = 6            // 房间号长度
	roomCodeChars     = "0123456789" // 房间号字符集
)

// CodeGenerator 房间号生成器
type CodeGenerator interface {
	Generate() string
}

// RandomCodeGenerator 随机数字房间号
type RandomCodeGenerator struct {
	length int
}

// NewCodeGenerator 创建指定长度的房间号生成器
func NewCodeGenerator(length int) *RandomCodeGenerator {
	if length <= 0 {
		length = defaultCodeLength
	}
	return &RandomCodeGenerator{length: length}
}

// Generate 生成房间号，唯一性由 Registry 保证
func (g *RandomCodeGenerator) Generate() string {
	code := make([]byte, g.length)
	for i := range code {
		code[i] = roomCodeChars[rand.IntN(len(roomCodeChars))]
	}
	return string(code)
}
