package projector

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"escrowScope/internal/model"
)

// RecurringPeriod is the fixed interval between recurring payments.
const RecurringPeriod = 30 * 24 * time.Hour

// ErrInconsistentState is returned when the raw amounts cannot describe a valid agreement.
var ErrInconsistentState = errors.New("inconsistent agreement state")

// Project decodes a raw agreement into display units and derives the computed fields.
// decimals is the declared decimal count of the agreement's token.
func Project(raw model.RawAgreement, decimals uint8) (model.AggregateState, error) {
	if raw.ID == nil {
		return model.AggregateState{}, fmt.Errorf("%w: missing id", ErrInconsistentState)
	}
	total := orZero(raw.TotalAmount)
	released := orZero(raw.AmountReleased)
	if total.Sign() < 0 || released.Sign() < 0 {
		return model.AggregateState{}, fmt.Errorf("%w: negative amount on agreement %s", ErrInconsistentState, raw.ID)
	}
	if released.Cmp(total) > 0 {
		return model.AggregateState{}, fmt.Errorf("%w: agreement %s released %s of %s", ErrInconsistentState, raw.ID, released, total)
	}
	if raw.CurrentMilestone != nil && !raw.CurrentMilestone.IsUint64() {
		return model.AggregateState{}, fmt.Errorf("%w: milestone index %s", ErrInconsistentState, raw.CurrentMilestone)
	}

	paymentType := model.PaymentTypeOf(raw.PaymentType)
	status := model.StatusOf(raw.Status)
	remaining := new(big.Int).Sub(total, released)

	state := model.AggregateState{
		ID:                raw.ID.String(),
		Company:           raw.Company,
		Worker:            raw.Worker,
		Arbitrator:        raw.Arbitrator,
		Token:             raw.Token,
		Decimals:          decimals,
		PaymentType:       paymentType,
		PaymentTypeLabel:  paymentType.String(),
		Status:            status,
		StatusLabel:       status.String(),
		TotalBudget:       amount(total, decimals),
		AmountReleased:    amount(released, decimals),
		RecurringAmount:   amount(raw.RecurringAmount, decimals),
		Remaining:         amount(remaining, decimals),
		EscrowAmount:      amount(EscrowAmount(status, total), decimals),
		NextPaymentAmount: amount(NextPaymentAmount(raw), decimals),
		NextPaymentDate:   NextPaymentDate(raw),
		Deadline:          unixTime(raw.Deadline),
		MilestoneCount:    len(raw.MilestoneDeadlines),
		CurrentMilestone:  milestoneIndex(raw),
		LastPaymentAt:     unixTime(raw.LastPaymentTime),
		CreatedAt:         unixTime(raw.CreatedAt),
		ProofOfWork:       raw.ProofOfWork,
	}
	for _, deadline := range raw.MilestoneDeadlines {
		if ts := unixTime(deadline); ts != nil {
			state.MilestoneDeadlines = append(state.MilestoneDeadlines, *ts)
		}
	}
	return state, nil
}

// EscrowAmount is zero while the agreement is Created and the full budget afterwards.
func EscrowAmount(status model.Status, total *big.Int) *big.Int {
	if status == model.StatusCreated {
		return new(big.Int)
	}
	return new(big.Int).Set(orZero(total))
}

// NextPaymentAmount returns the next payout in smallest units.
// The last milestone absorbs the rounding remainder of the equal split.
func NextPaymentAmount(raw model.RawAgreement) *big.Int {
	total := orZero(raw.TotalAmount)
	remaining := new(big.Int).Sub(total, orZero(raw.AmountReleased))
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}

	switch model.PaymentTypeOf(raw.PaymentType) {
	case model.PaymentOneTime:
		return remaining
	case model.PaymentMilestone:
		count := uint64(len(raw.MilestoneDeadlines))
		current := milestoneIndex(raw)
		switch {
		case count == 0:
			return remaining
		case current >= count:
			return new(big.Int)
		case current == count-1:
			return remaining
		default:
			return new(big.Int).Quo(total, new(big.Int).SetUint64(count))
		}
	case model.PaymentRecurring:
		return new(big.Int).Set(orZero(raw.RecurringAmount))
	default:
		return new(big.Int)
	}
}

// NextPaymentDate returns when the next payout is due, or nil if none is scheduled.
func NextPaymentDate(raw model.RawAgreement) *time.Time {
	switch model.PaymentTypeOf(raw.PaymentType) {
	case model.PaymentOneTime:
		return unixTime(raw.Deadline)
	case model.PaymentMilestone:
		current := milestoneIndex(raw)
		if current >= uint64(len(raw.MilestoneDeadlines)) {
			return nil
		}
		return unixTime(raw.MilestoneDeadlines[current])
	case model.PaymentRecurring:
		base := unixTime(raw.LastPaymentTime)
		if base == nil {
			base = unixTime(raw.CreatedAt)
		}
		if base == nil {
			return nil
		}
		next := base.Add(RecurringPeriod)
		return &next
	default:
		return nil
	}
}

func milestoneIndex(raw model.RawAgreement) uint64 {
	if raw.CurrentMilestone == nil || !raw.CurrentMilestone.IsUint64() {
		return 0
	}
	return raw.CurrentMilestone.Uint64()
}

func orZero(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return value
}
