package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
	addrH = "0x3333333333333333333333333333333333333333"
)

func TestNewPoolKeyDeterministicID(t *testing.T) {
	k1, err := NewPoolKey(addrA, addrB, 3000, 60, addrH)
	require.NoError(t, err)
	k2, err := NewPoolKey(addrA, addrB, 3000, 60, addrH)
	require.NoError(t, err)

	assert.Equal(t, k1.ID(), k2.ID())
	assert.NotEqual(t, [32]byte{}, [32]byte(k1.ID()))
}

func TestNewPoolKeyDistinctIDs(t *testing.T) {
	base, err := NewPoolKey(addrA, addrB, 3000, 60, addrH)
	require.NoError(t, err)

	variants := []struct {
		name string
		c0   string
		c1   string
		fee  int64
		tick int64
		hook string
	}{
		{"different fee", addrA, addrB, 500, 60, addrH},
		{"different tick spacing", addrA, addrB, 3000, 10, addrH},
		{"different hook", addrA, addrB, 3000, 60, addrB},
		{"swapped currencies", addrB, addrA, 3000, 60, addrH},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			k, err := NewPoolKey(v.c0, v.c1, v.fee, v.tick, v.hook)
			require.NoError(t, err)
			assert.NotEqual(t, base.ID(), k.ID())
		})
	}
}

func TestNewPoolKeyDynamicFeeDefault(t *testing.T) {
	k, err := NewPoolKey(addrA, addrB, 0, 60, addrH)
	require.NoError(t, err)
	assert.Equal(t, DynamicFee, k.Fee)

	neg, err := NewPoolKey(addrA, addrB, -1, 60, addrH)
	require.NoError(t, err)
	assert.Equal(t, k.ID(), neg.ID())
}

func TestNewPoolKeyValidation(t *testing.T) {
	_, err := NewPoolKey("not-an-address", addrB, 3000, 60, addrH)
	assert.Error(t, err)

	_, err = NewPoolKey(addrA, addrB, 0x1000000, 60, addrH)
	assert.Error(t, err)

	_, err = NewPoolKey(addrA, addrB, 3000, 1<<23, addrH)
	assert.Error(t, err)

	_, err = NewPoolKey(addrA, addrB, 3000, 60, "0x123")
	assert.Error(t, err)
}

func TestPoolKeyNormalizesCase(t *testing.T) {
	upper, err := NewPoolKey("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", addrB, 3000, 60, addrH)
	require.NoError(t, err)
	lower, err := NewPoolKey("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", addrB, 3000, 60, addrH)
	require.NoError(t, err)
	assert.Equal(t, upper.ID(), lower.ID())
}
