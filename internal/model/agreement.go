package model

import (
	"math/big"
	"time"
)

// RawAgreement is the undecoded on-chain agreement record as returned by getAgreement.
type RawAgreement struct {
	ID                 *big.Int
	Company            string
	Worker             string
	Arbitrator         string
	Token              string
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

// Amount pairs a smallest-unit integer with its decimal display form.
type Amount struct {
	Raw     string `json:"raw"`
	Display string `json:"display"`
}

// AggregateState is the decoded projection of one agreement.
type AggregateState struct {
	ID                 string      `json:"id"`
	Company            string      `json:"company"`
	Worker             string      `json:"worker"`
	Arbitrator         string      `json:"arbitrator"`
	Token              string      `json:"token"`
	Decimals           uint8       `json:"decimals"`
	PaymentType        PaymentType `json:"payment_type"`
	PaymentTypeLabel   string      `json:"payment_type_label"`
	Status             Status      `json:"status"`
	StatusLabel        string      `json:"status_label"`
	TotalBudget        Amount      `json:"total_budget"`
	AmountReleased     Amount      `json:"amount_released"`
	RecurringAmount    Amount      `json:"recurring_amount"`
	Remaining          Amount      `json:"remaining"`
	EscrowAmount       Amount      `json:"escrow_amount"`
	NextPaymentAmount  Amount      `json:"next_payment_amount"`
	NextPaymentDate    *time.Time  `json:"next_payment_date,omitempty"`
	Deadline           *time.Time  `json:"deadline,omitempty"`
	MilestoneDeadlines []time.Time `json:"milestone_deadlines,omitempty"`
	MilestoneCount     int         `json:"milestone_count"`
	CurrentMilestone   uint64      `json:"current_milestone"`
	LastPaymentAt      *time.Time  `json:"last_payment_at,omitempty"`
	CreatedAt          *time.Time  `json:"created_at,omitempty"`
	ProofOfWork        string      `json:"proof_of_work,omitempty"`
}

// RejectionEntry is one work rejection of an agreement.
type RejectionEntry struct {
	Timestamp       string  `json:"timestamp"`
	Reason          string  `json:"reason"`
	MilestoneNumber *uint64 `json:"milestone_number,omitempty"`
	BlockNumber     uint64  `json:"block_number,string"`
	TxHash          string  `json:"tx_hash"`
}
