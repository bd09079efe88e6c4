package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	content := []byte("model output: cat, confidence 0.97")

	first := Hash(content)
	second := Hash(content)

	assert.Equal(t, first, second)
	assert.False(t, first.IsZero())
}

func TestHashDiffersForDifferentContent(t *testing.T) {
	assert.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
}

func TestHashStringMatchesByteHash(t *testing.T) {
	assert.Equal(t, Hash([]byte("hello")), HashString("hello"))
}

func TestHashKnownVector(t *testing.T) {
	// keccak256 of the empty string.
	assert.Equal(t,
		"0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		Hash(nil).Hex())
}

func TestHashJSONKeyOrderIndependent(t *testing.T) {
	type variantA struct {
		Model string  `json:"model"`
		Score float64 `json:"score"`
	}
	type variantB struct {
		Score float64 `json:"score"`
		Model string  `json:"model"`
	}

	a, err := HashJSON(variantA{Model: "v1", Score: 0.5})
	require.NoError(t, err)
	b, err := HashJSON(variantB{Model: "v1", Score: 0.5})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestHashJSONNestedCanonicalization(t *testing.T) {
	a, err := HashJSON(map[string]interface{}{
		"outer": map[string]interface{}{"b": 2, "a": 1},
		"list":  []interface{}{1, 2, 3},
	})
	require.NoError(t, err)

	b, err := HashJSON(map[string]interface{}{
		"list":  []interface{}{1, 2, 3},
		"outer": map[string]interface{}{"a": 1, "b": 2},
	})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestParseCaseInsensitive(t *testing.T) {
	lower, err := Parse("0xabcdef0000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	upper, err := Parse("0xABCDEF0000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)

	assert.True(t, lower.Equal(upper))
}

func TestParseWithoutPrefix(t *testing.T) {
	id, err := Parse("abcdef0000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000000000000000000000000000000", id.Hex())
}

func TestParseRejectsWrongLength(t *testing.T) {
	_, err := Parse("0xabcdef")
	assert.Error(t, err)

	// 68 hex chars is a plausible off-by-four slip; only 64 is valid.
	_, err = Parse("0x" + "00000000000000000000000000000000000000000000000000000000000000000000")
	assert.Error(t, err)
}

func TestParseRejectsNonHex(t *testing.T) {
	_, err := Parse("0xzz" + "cdef0000000000000000000000000000000000000000000000000000000000")
	assert.Error(t, err)
}

func TestZeroSentinel(t *testing.T) {
	id, err := Parse("0x0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)

	assert.True(t, id.IsZero())
	assert.Equal(t, Zero, id)
}

func TestHexRoundTrip(t *testing.T) {
	original := HashString("round trip")

	parsed, err := Parse(original.Hex())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}
