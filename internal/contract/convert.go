package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil big int")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if v == nil || !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("uint8 overflow: %v", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func asBigInts(value interface{}) ([]*big.Int, error) {
	v, ok := value.([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported int slice type %T", value)
	}
	out := make([]*big.Int, 0, len(v))
	for _, item := range v {
		if item == nil {
			return nil, fmt.Errorf("nil element in int slice")
		}
		out = append(out, new(big.Int).Set(item))
	}
	return out, nil
}

// SubjectTopic encodes an agreement id as an indexed uint256 topic.
func SubjectTopic(id *big.Int) common.Hash {
	return common.BigToHash(id)
}

// ParseSubjectID parses a decimal or 0x-prefixed agreement id.
func ParseSubjectID(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	base := 10
	digits := input
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		base = 16
		digits = input[2:]
	}
	id, ok := new(big.Int).SetString(digits, base)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("invalid agreement id: %q", input)
	}
	return id, nil
}
