// Package identifier implements the 32-byte content digests used as record
// keys (predictionHash, inputHash). Hashing is keccak256 over canonicalized
// bytes so that an off-chain recomputation reproduces the value committed
// on-chain.
package identifier

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Size is the width of an identifier in bytes.
const Size = 32

// Identifier is a fixed-width content digest.
type Identifier [Size]byte

// Zero is the all-zero sentinel. A stored record whose predictionHash equals
// Zero denotes "absent" and is never a valid record.
var Zero Identifier

// Hash computes the keccak256 digest of raw content.
func Hash(content []byte) Identifier {
	var id Identifier
	copy(id[:], crypto.Keccak256(content))
	return id
}

// HashString hashes the UTF-8 bytes of s.
func HashString(s string) Identifier {
	return Hash([]byte(s))
}

// HashJSON hashes structured content after canonicalizing key order, so the
// digest is independent of map iteration order in the producer.
func HashJSON(v interface{}) (Identifier, error) {
	canonical, err := canonicalize(v)
	if err != nil {
		return Zero, fmt.Errorf("failed to canonicalize content: %w", err)
	}
	return Hash(canonical), nil
}

// canonicalize renders v as JSON with object keys in sorted order at every
// nesting level.
func canonicalize(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	var b strings.Builder
	if err := writeCanonical(&b, decoded); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func writeCanonical(b *strings.Builder, v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return err
			}
			b.Write(keyJSON)
			b.WriteByte(':')
			if err := writeCanonical(b, val[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		return nil
	case []interface{}:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return err
		}
		b.Write(raw)
		return nil
	}
}

// Parse decodes a 0x-prefixed hex identifier. Comparison of identifiers is
// case-insensitive because parsing lowercases before decoding.
func Parse(s string) (Identifier, error) {
	cleaned := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if len(cleaned) != Size*2 {
		return Zero, fmt.Errorf("invalid identifier length: got %d hex chars, want %d", len(cleaned), Size*2)
	}
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return Zero, fmt.Errorf("invalid identifier encoding: %w", err)
	}
	var id Identifier
	copy(id[:], raw)
	return id, nil
}

// IsZero reports whether the identifier is the absent sentinel.
func (id Identifier) IsZero() bool {
	return id == Zero
}

// Hex renders the identifier as 0x-prefixed lowercase hexadecimal, the
// canonical external representation.
func (id Identifier) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id Identifier) String() string {
	return id.Hex()
}

// Bytes32 returns the identifier as a fixed array for ABI encoding.
func (id Identifier) Bytes32() [32]byte {
	return [32]byte(id)
}

// FromBytes32 converts an ABI-decoded bytes32 value.
func FromBytes32(raw [32]byte) Identifier {
	return Identifier(raw)
}

// Equal compares two identifiers byte-wise. Since both sides are parsed
// through Parse or decoded from the ABI, this is the case-insensitive
// comparison required for external hex representations.
func (id Identifier) Equal(other Identifier) bool {
	return id == other
}
