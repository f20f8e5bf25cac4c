package deal

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Action represents one approver's position on a deal.
type Action string

const (
	ActionPending  Action = "PENDING"
	ActionAccepted Action = "ACCEPTED"
	ActionRejected Action = "REJECTED"
	ActionApproved Action = "APPROVED"
)

// Status represents the overall outcome of a deal.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusCompleted Status = "COMPLETED"
	StatusClosed    Status = "CLOSED"
)

// Decision represents an approver's input.
type Decision string

const (
	DecisionAccept  Decision = "ACCEPT"
	DecisionReject  Decision = "REJECT"
	DecisionApprove Decision = "APPROVE"
)

// ParseDecision normalizes user input into a Decision.
func ParseDecision(raw string) (Decision, error) {
	switch Decision(strings.ToUpper(strings.TrimSpace(raw))) {
	case DecisionAccept:
		return DecisionAccept, nil
	case DecisionReject:
		return DecisionReject, nil
	case DecisionApprove:
		return DecisionApprove, nil
	default:
		return "", ErrInvalidDecision
	}
}

// State is the (supplier_action, admin_action, final_status) triple a deal
// moves through.
type State struct {
	SupplierAction Action `json:"supplierAction"`
	AdminAction    Action `json:"adminAction"`
	FinalStatus    Status `json:"finalStatus"`
}

// The five legal states. Anything outside this table is invalid and must be
// rejected, never coerced.
var (
	StateOpen             = State{ActionPending, ActionPending, StatusOpen}
	StateSupplierAccepted = State{ActionAccepted, ActionPending, StatusOpen}
	StateSupplierRejected = State{ActionRejected, ActionRejected, StatusClosed}
	StateCompleted        = State{ActionAccepted, ActionApproved, StatusCompleted}
	StateAdminRejected    = State{ActionAccepted, ActionRejected, StatusClosed}
)

var legalStates = []State{
	StateOpen,
	StateSupplierAccepted,
	StateSupplierRejected,
	StateCompleted,
	StateAdminRejected,
}

// Valid reports whether the state is a member of the transition table.
func (s State) Valid() bool {
	for _, legal := range legalStates {
		if s == legal {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s State) Terminal() bool {
	return s.FinalStatus == StatusCompleted || s.FinalStatus == StatusClosed
}

// Deal binds one stone, one client, one supplier and an admin approval gate.
// Prices are snapshotted at creation and never change.
type Deal struct {
	DealID         string          `json:"dealId"`
	StockID        string          `json:"stockId"`
	Supplier       string          `json:"supplier"`
	Client         string          `json:"client"`
	ListPrice      decimal.Decimal `json:"listPrice"`
	OfferPrice     decimal.Decimal `json:"offerPrice"`
	SupplierAction Action          `json:"supplierAction"`
	AdminAction    Action          `json:"adminAction"`
	FinalStatus    Status          `json:"finalStatus"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// State returns the deal's current state triple.
func (d *Deal) State() State {
	return State{d.SupplierAction, d.AdminAction, d.FinalStatus}
}

// IsTerminal reports whether the deal reached COMPLETED or CLOSED.
func (d *Deal) IsTerminal() bool {
	return d.State().Terminal()
}

func (d *Deal) setState(s State, now time.Time) {
	d.SupplierAction = s.SupplierAction
	d.AdminAction = s.AdminAction
	d.FinalStatus = s.FinalStatus
	d.UpdatedAt = now.UTC()
}

// ApplySupplierDecision transitions the deal on the supplier's response.
// Only (PENDING, PENDING, OPEN) accepts a supplier decision.
func (d *Deal) ApplySupplierDecision(decision Decision, now time.Time) error {
	if d.IsTerminal() {
		return ErrAlreadyFinal
	}
	if d.State() != StateOpen {
		return ErrInvalidPrecondition
	}
	switch decision {
	case DecisionAccept:
		d.setState(StateSupplierAccepted, now)
	case DecisionReject:
		d.setState(StateSupplierRejected, now)
	default:
		return ErrInvalidDecision
	}
	return nil
}

// ApplyAdminDecision transitions the deal on the admin's response. Only
// (ACCEPTED, PENDING, OPEN) accepts an admin decision.
func (d *Deal) ApplyAdminDecision(decision Decision, now time.Time) error {
	if d.IsTerminal() {
		return ErrAlreadyFinal
	}
	if d.State() != StateSupplierAccepted {
		return ErrInvalidPrecondition
	}
	switch decision {
	case DecisionApprove:
		d.setState(StateCompleted, now)
	case DecisionReject:
		d.setState(StateAdminRejected, now)
	default:
		return ErrInvalidDecision
	}
	return nil
}

// NewDealID generates a deal identifier of the form DEAL-XXXXXXXXXX.
func NewDealID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "DEAL-" + strings.ToUpper(hex[:10])
}
