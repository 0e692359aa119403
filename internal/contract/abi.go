package contract

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const escrowABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "agreementId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "PaymentReleased",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "agreementId", "type": "uint256"},
      {"indexed": false, "internalType": "string", "name": "reason", "type": "string"}
    ],
    "name": "WorkRejected",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "agreementId", "type": "uint256"},
      {"indexed": false, "internalType": "string", "name": "reason", "type": "string"}
    ],
    "name": "Disputed",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "agreementId", "type": "uint256"}],
    "name": "getAgreement",
    "outputs": [
      {"internalType": "address", "name": "company", "type": "address"},
      {"internalType": "address", "name": "worker", "type": "address"},
      {"internalType": "address", "name": "arbitrator", "type": "address"},
      {"internalType": "address", "name": "token", "type": "address"},
      {"internalType": "enum WorkEscrow.PaymentType", "name": "paymentType", "type": "uint8"},
      {"internalType": "enum WorkEscrow.Status", "name": "status", "type": "uint8"},
      {"internalType": "uint256", "name": "totalAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "amountReleased", "type": "uint256"},
      {"internalType": "uint256", "name": "recurringAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "deadline", "type": "uint256"},
      {"internalType": "uint256[]", "name": "milestoneDeadlines", "type": "uint256[]"},
      {"internalType": "uint256", "name": "currentMilestone", "type": "uint256"},
      {"internalType": "uint256", "name": "lastPaymentTime", "type": "uint256"},
      {"internalType": "uint256", "name": "createdAt", "type": "uint256"},
      {"internalType": "string", "name": "proofOfWork", "type": "string"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "company", "type": "address"}],
    "name": "getCompanyAgreements",
    "outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "worker", "type": "address"}],
    "name": "getWorkerAgreements",
    "outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	escrowABI     abi.ABI
	escrowABIOnce sync.Once
	escrowABIErr  error
)

// EscrowABI returns the parsed escrow contract ABI.
func EscrowABI() (abi.ABI, error) {
	escrowABIOnce.Do(func() {
		escrowABI, escrowABIErr = abi.JSON(strings.NewReader(escrowABIJSON))
	})
	return escrowABI, escrowABIErr
}
