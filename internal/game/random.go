package game

import (
	"crypto/rand"
	"io"
	"math/big"
	mrand "math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RandomGenerator 随机数生成器接口
type RandomGenerator interface {
	// Next 生成[0,1)区间的随机数
	Next() float64

	// NextInt 生成[min,max)区间的随机整数
	NextInt(min, max int) int
}

// Clock 时间来源
type Clock func() time.Time

// SystemClock 系统时间
func SystemClock() time.Time {
	return time.Now()
}

// float53 float64尾数精度，[0,2^53)内的整数除以2^53可以精确表示
const float53 = 1 << 53

// CryptoRandomGenerator 加密安全的随机数生成器
type CryptoRandomGenerator struct {
	reader io.Reader
	log    *zap.Logger
}

// NewCryptoRandomGenerator 创建加密随机数生成器，log为nil时不记录
func NewCryptoRandomGenerator(log *zap.Logger) *CryptoRandomGenerator {
	if log == nil {
		log = zap.NewNop()
	}
	return &CryptoRandomGenerator{reader: rand.Reader, log: log}
}

// Next 生成[0,1)区间的随机数，熵源失败时记录错误并退回math/rand
func (g *CryptoRandomGenerator) Next() float64 {
	n, err := rand.Int(g.reader, big.NewInt(float53))
	if err != nil {
		g.log.Error("读取加密随机数失败，退回伪随机数", zap.Error(err))
		return mrand.Float64()
	}
	return float64(n.Int64()) / float53
}

// NextInt 生成[min,max)区间的随机整数
func (g *CryptoRandomGenerator) NextInt(min, max int) int {
	if min >= max {
		return min
	}
	n, err := rand.Int(g.reader, big.NewInt(int64(max-min)))
	if err != nil {
		g.log.Error("读取加密随机数失败，退回伪随机数", zap.Error(err))
		return min + mrand.IntN(max-min)
	}
	return min + int(n.Int64())
}

// SequenceRandomGenerator 按给定序列循环返回的随机数生成器，用于回放和测试
type SequenceRandomGenerator struct {
	mu     sync.Mutex
	values []float64
	pos    int
}

// NewSequenceRandomGenerator 创建序列随机数生成器
func NewSequenceRandomGenerator(values ...float64) *SequenceRandomGenerator {
	if len(values) == 0 {
		values = []float64{0.5}
	}
	return &SequenceRandomGenerator{values: values}
}

// Next 返回序列中的下一个值
func (g *SequenceRandomGenerator) Next() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.values[g.pos%len(g.values)]
	g.pos++
	return v
}

// NextInt 按序列值映射到[min,max)
func (g *SequenceRandomGenerator) NextInt(min, max int) int {
	if min >= max {
		return min
	}
	n := min + int(g.Next()*float64(max-min))
	if n >= max {
		n = max - 1
	}
	return n
}
