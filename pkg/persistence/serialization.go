package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// MarshalUint256 encodes an amount as a fixed 32-byte big-endian word.
func MarshalUint256(v *uint256.Int) []byte {
	if v == nil {
		v = new(uint256.Int)
	}
	b := v.Bytes32()
	return b[:]
}

// UnmarshalUint256 decodes a 32-byte big-endian word. Missing values decode to zero.
func UnmarshalUint256(data []byte) (*uint256.Int, error) {
	if len(data) == 0 {
		return new(uint256.Int), nil
	}
	if len(data) != 32 {
		return nil, fmt.Errorf("invalid uint256 encoding: expected 32 bytes, got %d", len(data))
	}
	return new(uint256.Int).SetBytes32(data), nil
}

// MarshalJSON serializes v to JSON bytes.
func MarshalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot marshal nil value")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalJSON deserializes JSON bytes into v.
func UnmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("cannot unmarshal empty data")
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}

// CopyBytes returns a copy of b, preserving nil.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
