package contract

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"escrowScope/internal/model"
)

var escrowAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")

func TestDecoderPaymentReleased(t *testing.T) {
	escrowABI, err := EscrowABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewDecoder(escrowAddr)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	data, err := escrowABI.Events["PaymentReleased"].Inputs.NonIndexed().Pack(big.NewInt(3_400_000))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	log := types.Log{
		Address: escrowAddr,
		Topics:  []common.Hash{escrowABI.Events["PaymentReleased"].ID, SubjectTopic(big.NewInt(7))},
		Data:    data,
	}

	decoded, err := decoder.Decode(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Kind != model.EventPaymentReleased {
		t.Fatalf("kind mismatch: %s", decoded.Kind)
	}
	if decoded.SubjectID.Int64() != 7 {
		t.Fatalf("subject mismatch: %s", decoded.SubjectID)
	}
	if decoded.Payload["amount"] != "3400000" {
		t.Fatalf("amount mismatch: %+v", decoded.Payload)
	}
}

func TestDecoderReasonEvents(t *testing.T) {
	escrowABI, err := EscrowABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewDecoder(escrowAddr)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	cases := map[string]model.EventKind{
		"WorkRejected": model.EventWorkRejected,
		"Disputed":     model.EventDisputed,
	}
	for name, kind := range cases {
		data, err := escrowABI.Events[name].Inputs.NonIndexed().Pack("missing tests")
		if err != nil {
			t.Fatalf("pack %s: %v", name, err)
		}
		log := types.Log{
			Address: escrowAddr,
			Topics:  []common.Hash{escrowABI.Events[name].ID, SubjectTopic(big.NewInt(12))},
			Data:    data,
		}
		decoded, err := decoder.Decode(log)
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		if decoded.Kind != kind || decoded.Payload["reason"] != "missing tests" {
			t.Fatalf("%s mismatch: %+v", name, decoded)
		}
	}
}

func TestDecoderRejectsMismatchedShapes(t *testing.T) {
	escrowABI, err := EscrowABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewDecoder(escrowAddr)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	topic0 := escrowABI.Events["PaymentReleased"].ID

	if _, err := decoder.Decode(types.Log{Address: escrowAddr, Topics: []common.Hash{common.HexToHash("0x01")}}); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
	if _, err := decoder.Decode(types.Log{Address: escrowAddr, Topics: []common.Hash{topic0}}); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for missing subject topic, got %v", err)
	}
	badData := types.Log{Address: escrowAddr, Topics: []common.Hash{topic0, SubjectTopic(big.NewInt(1))}, Data: []byte{0x01}}
	if _, err := decoder.Decode(badData); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for short data, got %v", err)
	}
	otherEmitter := types.Log{Address: common.HexToAddress("0x2222222222222222222222222222222222222222"), Topics: []common.Hash{topic0, SubjectTopic(big.NewInt(1))}}
	if _, err := decoder.Decode(otherEmitter); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for foreign emitter, got %v", err)
	}
}

func TestParseSubjectID(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "42", want: "42"},
		{in: " 0x2a ", want: "42"},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseSubjectID(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("%q: got %s want %s", tc.in, got, tc.want)
		}
	}
}
