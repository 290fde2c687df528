package game

import (
	"bytes"
	stderrors "errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCryptoRandomGenerator_Range(t *testing.T) {
	g := NewCryptoRandomGenerator(zap.NewNop())

	seen := make(map[float64]bool)
	for i := 0; i < 1000; i++ {
		v := g.Next()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
		seen[v] = true

		n := g.NextInt(3, 7)
		require.GreaterOrEqual(t, n, 3)
		require.Less(t, n, 7)
	}
	assert.Greater(t, len(seen), 990)
	assert.Equal(t, 5, g.NextInt(5, 5))
}

func TestCryptoRandomGenerator_FullPrecision(t *testing.T) {
	// 全1字节得到最大值，仍然小于1
	g := NewCryptoRandomGenerator(nil)
	g.reader = bytes.NewReader(bytes.Repeat([]byte{0xff}, 7))
	assert.Equal(t, 1-1.0/float53, g.Next())

	// 最小非零值不会被截断为0
	g.reader = bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 1})
	v := g.Next()
	assert.Greater(t, v, 0.0)
	assert.Equal(t, 1.0/float53, v)
}

func TestCryptoRandomGenerator_ReaderFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	g := NewCryptoRandomGenerator(zap.New(core))
	g.reader = iotest.ErrReader(stderrors.New("entropy unavailable"))

	values := make(map[float64]bool)
	for i := 0; i < 20; i++ {
		v := g.Next()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
		values[v] = true
	}
	// 退回伪随机数而不是固定值
	assert.Greater(t, len(values), 1)

	n := g.NextInt(10, 20)
	assert.GreaterOrEqual(t, n, 10)
	assert.Less(t, n, 20)

	require.Equal(t, 21, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "entropy unavailable", entry.ContextMap()["error"])
}
