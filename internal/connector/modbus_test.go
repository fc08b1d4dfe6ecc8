package connector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRegisters(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		dataType string
		want     float64
	}{
		{"uint16", []byte{0x01, 0x00}, "uint16", 256},
		{"uint16 default type", []byte{0x00, 0x2a}, "", 42},
		{"int16 negative", []byte{0xff, 0xff}, "int16", -1},
		{"uint32", []byte{0x00, 0x01, 0x00, 0x00}, "uint32", 65536},
		{"int32 negative", []byte{0xff, 0xff, 0xff, 0xfe}, "int32", -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeRegisters(tt.raw, tt.dataType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRegisters_Float32(t *testing.T) {
	bits := math.Float32bits(21.5)
	raw := []byte{byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits)}

	got, err := decodeRegisters(raw, "float32")
	require.NoError(t, err)
	assert.InDelta(t, 21.5, got, 1e-6)
}

func TestDecodeRegisters_Malformed(t *testing.T) {
	_, err := decodeRegisters([]byte{0x01}, "uint16")
	assert.Error(t, err)

	_, err = decodeRegisters([]byte{0x01, 0x02}, "float32")
	assert.Error(t, err)

	_, err = decodeRegisters([]byte{0x01, 0x02}, "ascii")
	assert.Error(t, err)
}

func TestRegisterQuantity(t *testing.T) {
	assert.Equal(t, uint16(1), registerQuantity("uint16"))
	assert.Equal(t, uint16(1), registerQuantity(""))
	assert.Equal(t, uint16(2), registerQuantity("float32"))
	assert.Equal(t, uint16(2), registerQuantity("uint32"))
	assert.Equal(t, uint16(2), registerQuantity("int32"))
}

func TestNumericValue(t *testing.T) {
	for _, v := range []interface{}{int32(7), uint16(7), int64(7), float32(7), float64(7)} {
		got, ok := numericValue(v)
		require.True(t, ok)
		assert.Equal(t, 7.0, got)
	}

	got, ok := numericValue(true)
	require.True(t, ok)
	assert.Equal(t, 1.0, got)

	_, ok = numericValue("not a number")
	assert.False(t, ok)
}

func TestBackoffNext(t *testing.T) {
	b := Backoff{Min: 1e9, Max: 8e9}

	next := b.Next(1e9)
	assert.GreaterOrEqual(t, int64(next), int64(2e9))
	assert.Less(t, int64(next), int64(3e9))

	// Doubling is capped at Max (plus jitter below Min).
	next = b.Next(8e9)
	assert.GreaterOrEqual(t, int64(next), int64(8e9))
	assert.Less(t, int64(next), int64(9e9))
}
