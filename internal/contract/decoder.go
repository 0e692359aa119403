package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"escrowScope/internal/model"
)

var eventNames = map[model.EventKind]string{
	model.EventPaymentReleased: "PaymentReleased",
	model.EventWorkRejected:    "WorkRejected",
	model.EventDisputed:        "Disputed",
}

// Decoded is an escrow event log reduced to its subject and payload.
type Decoded struct {
	Kind      model.EventKind
	SubjectID *big.Int
	Payload   map[string]string
}

// Decoder decodes escrow contract event logs.
type Decoder struct {
	escrowABI   abi.ABI
	address     common.Address
	topicToKind map[common.Hash]model.EventKind
}

// NewDecoder builds a decoder for logs emitted by the escrow contract at address.
// A zero address accepts logs from any emitter.
func NewDecoder(address common.Address) (*Decoder, error) {
	escrowABI, err := EscrowABI()
	if err != nil {
		return nil, fmt.Errorf("parse escrow abi: %w", err)
	}

	topicToKind := make(map[common.Hash]model.EventKind, len(eventNames))
	for kind, name := range eventNames {
		event, ok := escrowABI.Events[name]
		if !ok {
			return nil, fmt.Errorf("escrow abi missing event %s", name)
		}
		topicToKind[event.ID] = kind
	}

	return &Decoder{
		escrowABI:   escrowABI,
		address:     address,
		topicToKind: topicToKind,
	}, nil
}

// Address returns the contract address the decoder is bound to.
func (d *Decoder) Address() common.Address {
	return d.address
}

// Topic0 returns the event signature hash for kind.
func (d *Decoder) Topic0(kind model.EventKind) (common.Hash, error) {
	name, ok := eventNames[kind]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrUnknownEvent, kind)
	}
	return d.escrowABI.Events[name].ID, nil
}

// Decode converts a raw log into its subject id and payload.
func (d *Decoder) Decode(log types.Log) (Decoded, error) {
	if len(log.Topics) == 0 {
		return Decoded{}, fmt.Errorf("%w: missing topics", ErrDecode)
	}
	kind, ok := d.topicToKind[log.Topics[0]]
	if !ok {
		return Decoded{}, fmt.Errorf("%w: topic0 %s", ErrUnknownEvent, log.Topics[0].Hex())
	}
	if d.address != (common.Address{}) && log.Address != d.address {
		return Decoded{}, fmt.Errorf("%w: log from %s, expected %s", ErrDecode, log.Address.Hex(), d.address.Hex())
	}

	event := d.escrowABI.Events[eventNames[kind]]
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return Decoded{}, fmt.Errorf("%w: %s expected %d topics, got %d", ErrDecode, event.Name, len(indexed)+1, len(log.Topics))
	}

	topicValues := make(map[string]interface{}, len(indexed))
	if err := abi.ParseTopicsIntoMap(topicValues, indexed, log.Topics[1:]); err != nil {
		return Decoded{}, fmt.Errorf("%w: parse topics: %v", ErrDecode, err)
	}
	subject, err := asBigInt(topicValues["agreementId"])
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: agreementId: %v", ErrDecode, err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: unpack %s: %v", ErrDecode, event.Name, err)
	}
	if len(values) != 1 {
		return Decoded{}, fmt.Errorf("%w: unexpected %s values: %d", ErrDecode, event.Name, len(values))
	}

	payload := make(map[string]string, 1)
	switch kind {
	case model.EventPaymentReleased:
		amount, err := asBigInt(values[0])
		if err != nil {
			return Decoded{}, fmt.Errorf("%w: amount: %v", ErrDecode, err)
		}
		payload["amount"] = amount.String()
	case model.EventWorkRejected, model.EventDisputed:
		reason, ok := values[0].(string)
		if !ok {
			return Decoded{}, fmt.Errorf("%w: reason has type %T", ErrDecode, values[0])
		}
		payload["reason"] = reason
	}

	return Decoded{Kind: kind, SubjectID: subject, Payload: payload}, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
