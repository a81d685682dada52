package qemu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialBuffer_KeepsEverythingUnderLimit(t *testing.T) {
	b := newSerialBuffer(64)

	n, err := b.Write([]byte("boot ok\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	assert.Equal(t, "boot ok\n", b.String())
	assert.Equal(t, int64(8), b.TotalBytes())
	assert.False(t, b.Truncated())
}

func TestSerialBuffer_KeepsTailOnOverflow(t *testing.T) {
	b := newSerialBuffer(10)

	_, err := b.Write([]byte(strings.Repeat("a", 10)))
	require.NoError(t, err)
	_, err = b.Write([]byte("tail"))
	require.NoError(t, err)

	assert.Equal(t, "aaaaaatail", b.String())
	assert.Equal(t, int64(14), b.TotalBytes())
	assert.True(t, b.Truncated())
}

func TestSerialBuffer_SingleOversizedWrite(t *testing.T) {
	b := newSerialBuffer(5)

	_, err := b.Write([]byte("0123456789"))
	require.NoError(t, err)

	assert.Equal(t, "56789", b.String())
	assert.True(t, b.Truncated())
}

func TestSerialBuffer_DefaultSize(t *testing.T) {
	b := newSerialBuffer(0)
	assert.Equal(t, defaultSerialTailBytes, b.maxBytes)
}
