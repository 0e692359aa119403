package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"escrowScope/internal/chain"
	"escrowScope/internal/model"
)

// agreementOutputs mirrors the named outputs of getAgreement.
type agreementOutputs struct {
	Company            common.Address
	Worker             common.Address
	Arbitrator         common.Address
	Token              common.Address
	PaymentType        uint8
	Status             uint8
	TotalAmount        *big.Int
	AmountReleased     *big.Int
	RecurringAmount    *big.Int
	Deadline           *big.Int
	MilestoneDeadlines []*big.Int
	CurrentMilestone   *big.Int
	LastPaymentTime    *big.Int
	CreatedAt          *big.Int
	ProofOfWork        string
}

// Reader performs read-only calls against the escrow contract.
type Reader struct {
	caller    chain.ContractCaller
	address   common.Address
	escrowABI abi.ABI
}

func NewReader(caller chain.ContractCaller, address common.Address) (*Reader, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	escrowABI, err := EscrowABI()
	if err != nil {
		return nil, fmt.Errorf("parse escrow abi: %w", err)
	}
	return &Reader{caller: caller, address: address, escrowABI: escrowABI}, nil
}

// Agreement reads one agreement. A nil blockNumber reads the latest state.
func (r *Reader) Agreement(ctx context.Context, id *big.Int, blockNumber *big.Int) (model.RawAgreement, error) {
	if id == nil {
		return model.RawAgreement{}, fmt.Errorf("agreement id is nil")
	}
	resp, err := r.call(ctx, "getAgreement", blockNumber, id)
	if err != nil {
		return model.RawAgreement{}, err
	}

	var out agreementOutputs
	if err := r.escrowABI.UnpackIntoInterface(&out, "getAgreement", resp); err != nil {
		return model.RawAgreement{}, fmt.Errorf("%w: unpack getAgreement(%s): %v", ErrDecode, id, err)
	}

	return model.RawAgreement{
		ID:                 new(big.Int).Set(id),
		Company:            out.Company.Hex(),
		Worker:             out.Worker.Hex(),
		Arbitrator:         out.Arbitrator.Hex(),
		Token:              out.Token.Hex(),
		PaymentType:        out.PaymentType,
		Status:             out.Status,
		TotalAmount:        out.TotalAmount,
		AmountReleased:     out.AmountReleased,
		RecurringAmount:    out.RecurringAmount,
		Deadline:           out.Deadline,
		MilestoneDeadlines: out.MilestoneDeadlines,
		CurrentMilestone:   out.CurrentMilestone,
		LastPaymentTime:    out.LastPaymentTime,
		CreatedAt:          out.CreatedAt,
		ProofOfWork:        out.ProofOfWork,
	}, nil
}

// AgreementIDs returns the ids where owner is the company or the worker.
// The result may contain duplicates.
func (r *Reader) AgreementIDs(ctx context.Context, owner common.Address) ([]*big.Int, error) {
	ids := make([]*big.Int, 0)
	for _, method := range []string{"getCompanyAgreements", "getWorkerAgreements"} {
		resp, err := r.call(ctx, method, nil, owner)
		if err != nil {
			return nil, err
		}
		values, err := r.escrowABI.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("%w: unpack %s: %v", ErrDecode, method, err)
		}
		if len(values) != 1 {
			return nil, fmt.Errorf("%w: unexpected %s values: %d", ErrDecode, method, len(values))
		}
		batch, err := asBigInts(values[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecode, method, err)
		}
		ids = append(ids, batch...)
	}
	return ids, nil
}

func (r *Reader) call(ctx context.Context, method string, blockNumber *big.Int, args ...interface{}) ([]byte, error) {
	data, err := r.escrowABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &r.address, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return resp, nil
}
