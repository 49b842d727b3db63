package models

import "time"

// HistoryAction is the kind of change recorded on a debtor's balance
type HistoryAction string

const (
	ActionAdd     HistoryAction = "add"
	ActionReduce  HistoryAction = "reduce"
	ActionSettled HistoryAction = "settled"
)

// DebtHistoryEntry represents one immutable change to a debtor's balance
type DebtHistoryEntry struct {
	ID            int64         `json:"id"`
	AmountChanged float64       `json:"amount_changed"`
	Action        HistoryAction `json:"action"`
	Timestamp     time.Time     `json:"timestamp"`
	Note          string        `json:"note,omitempty"`
}

// DebtorRecord represents a debtor as read from the ledger.
// History is ordered most-recent-first.
type DebtorRecord struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	AmountOwed  float64            `json:"amount_owed"`
	PhoneNumber string             `json:"phone_number"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	History     []DebtHistoryEntry `json:"history"`
}

// Settled reports whether the debtor owes nothing
func (d DebtorRecord) Settled() bool {
	return d.AmountOwed <= 0
}

// Payments returns the reduce entries of the history in their stored order
func (d DebtorRecord) Payments() []DebtHistoryEntry {
	var payments []DebtHistoryEntry
	for _, h := range d.History {
		if h.Action == ActionReduce {
			payments = append(payments, h)
		}
	}
	return payments
}
