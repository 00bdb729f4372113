package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrDuplicateCredit = errors.New("borrower already credited for loan")

// Credit is one instruction sent to the wallet side.
type Credit struct {
	LoanID     string
	BorrowerID string
	Amount     decimal.Decimal
}

// LogLedger records credit instructions and logs them. Wallet bookkeeping
// lives outside this service.
type LogLedger struct {
	log *zap.Logger

	mu      sync.Mutex
	credits map[string]Credit
}

func NewLogLedger(log *zap.Logger) *LogLedger {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogLedger{log: log, credits: map[string]Credit{}}
}

func (l *LogLedger) CreditBorrowerAccount(_ context.Context, loanID, borrowerID string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.credits[loanID]; ok {
		return ErrDuplicateCredit
	}
	l.credits[loanID] = Credit{LoanID: loanID, BorrowerID: borrowerID, Amount: amount}
	l.log.Info("borrower account credited",
		zap.String("loan_id", loanID),
		zap.String("borrower_id", borrowerID),
		zap.String("amount", amount.StringFixed(2)),
	)
	return nil
}

// Credits returns the instructions recorded so far.
func (l *LogLedger) Credits() []Credit {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Credit, 0, len(l.credits))
	for _, c := range l.credits {
		out = append(out, c)
	}
	return out
}
