package credit

import (
	"time"

	"github.com/shopspring/decimal"
)

type ApprovalMode string

const (
	ApprovalAutomatic ApprovalMode = "automatic"
	ApprovalManual    ApprovalMode = "manual"
	ApprovalBoth      ApprovalMode = "both"
)

func (m ApprovalMode) Valid() bool {
	switch m {
	case ApprovalAutomatic, ApprovalManual, ApprovalBoth:
		return true
	}
	return false
}

// UsesPools reports whether the mode starts with automatic pool matching.
func (m ApprovalMode) UsesPools() bool { return m == ApprovalAutomatic || m == ApprovalBoth }

type CollateralType string

const (
	CollateralVehicle     CollateralType = "vehicle"
	CollateralProperty    CollateralType = "property"
	CollateralEquipment   CollateralType = "equipment"
	CollateralReceivables CollateralType = "receivables"
)

func (t CollateralType) Valid() bool {
	switch t {
	case CollateralVehicle, CollateralProperty, CollateralEquipment, CollateralReceivables:
		return true
	}
	return false
}

// Collateral is owned by its Request and has no lifecycle of its own.
type Collateral struct {
	Type           CollateralType  `json:"type"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
	Description    string          `json:"description"`
}

// Request is a borrower's ask. It is treated as immutable once submitted.
type Request struct {
	ID               string          `json:"request_id"`
	BorrowerID       string          `json:"borrower_id"`
	Amount           decimal.Decimal `json:"amount"`
	InstallmentCount int             `json:"installment_count"`
	Collateral       *Collateral     `json:"collateral,omitempty"`
	ApprovalMode     ApprovalMode    `json:"approval_mode"`
	BorrowerScore    int             `json:"borrower_score"`
	SubmittedAt      time.Time       `json:"submitted_at"`
}

// CollateralType returns the pledged collateral type, or nil for unsecured requests.
func (r Request) CollateralType() *CollateralType {
	if r.Collateral == nil {
		return nil
	}
	t := r.Collateral.Type
	return &t
}

// Clone returns a copy that shares no pointers with r.
func (r Request) Clone() Request {
	out := r
	if r.Collateral != nil {
		c := *r.Collateral
		out.Collateral = &c
	}
	return out
}
