// Package util ABI-encodes contract constructor arguments in the form block
// explorers expect for source verification.
package util

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	addressType = mustType("address")
	bytes32Type = mustType("bytes32")
	uint256Type = mustType("uint256")
	stringType  = mustType("string")
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("invalid abi type %s: %v", t, err))
	}
	return typ
}

func EncodeString(str string) ([]byte, error) {
	return abi.Arguments{{Type: stringType}}.Pack(str)
}

// EncodeTokenConstructorArgs encodes (address initialHolder).
func EncodeTokenConstructorArgs(initialHolder common.Address) ([]byte, error) {
	return abi.Arguments{{Type: addressType}}.Pack(initialHolder)
}

// EncodeClaimerConstructorArgs encodes (address token, bytes32 merkleRoot, uint256 claimTimeLimit).
func EncodeClaimerConstructorArgs(token common.Address, merkleRoot [32]byte, claimTimeLimit uint64) ([]byte, error) {
	args := abi.Arguments{{Type: addressType}, {Type: bytes32Type}, {Type: uint256Type}}
	return args.Pack(token, merkleRoot, new(big.Int).SetUint64(claimTimeLimit))
}

// EncodeVestedClaimerConstructorArgs encodes (address token, bytes32 merkleRoot,
// uint256 releaseTimeLimit, uint256 start, uint256 duration, uint256 cliff).
func EncodeVestedClaimerConstructorArgs(
	token common.Address,
	merkleRoot [32]byte,
	releaseTimeLimit, start, duration, cliff uint64,
) ([]byte, error) {
	args := abi.Arguments{
		{Type: addressType},
		{Type: bytes32Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
	}
	return args.Pack(
		token,
		merkleRoot,
		new(big.Int).SetUint64(releaseTimeLimit),
		new(big.Int).SetUint64(start),
		new(big.Int).SetUint64(duration),
		new(big.Int).SetUint64(cliff),
	)
}

// EncodeDistributorConstructorArgs encodes (address token).
func EncodeDistributorConstructorArgs(token common.Address) ([]byte, error) {
	return abi.Arguments{{Type: addressType}}.Pack(token)
}

// EncodeConverterConstructorArgs encodes (address oldToken, address newToken).
func EncodeConverterConstructorArgs(oldToken, newToken common.Address) ([]byte, error) {
	return abi.Arguments{{Type: addressType}, {Type: addressType}}.Pack(oldToken, newToken)
}

// ToHex renders encoded args without a 0x prefix, the way explorers accept them.
func ToHex(encoded []byte) string {
	return hex.EncodeToString(encoded)
}
