package util

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/require"
)

func FuzzEncodeStringRoundTrip(f *testing.F) {
	f.Add("")
	f.Add("hello")
	f.Add("こんにちは")

	args := abi.Arguments{{Type: stringType}}

	f.Fuzz(func(t *testing.T, s string) {
		if len(s) > 4096 {
			s = s[:4096]
		}

		encoded, err := EncodeString(s)
		require.NoError(t, err)

		out, err := args.Unpack(encoded)
		require.NoError(t, err)
		require.Len(t, out, 1)

		decoded, ok := out[0].(string)
		require.True(t, ok)
		require.Equal(t, s, decoded)
	})
}

func FuzzEncodeClaimerConstructorArgs(f *testing.F) {
	f.Add(make([]byte, 20), make([]byte, 32), uint64(0))
	f.Add([]byte("01234567890123456789"), []byte("0123456789012345678901234567890x"), uint64(1_700_000_000))

	f.Fuzz(func(t *testing.T, token []byte, root []byte, limit uint64) {
		if len(token) < 20 || len(root) < 32 {
			return
		}
		var r [32]byte
		copy(r[:], root)

		encoded, err := EncodeClaimerConstructorArgs(bytesToAddress(token), r, limit)
		require.NoError(t, err)
		// three static words
		require.Len(t, encoded, 96)
		require.Equal(t, r[:], encoded[32:64])
	})
}
