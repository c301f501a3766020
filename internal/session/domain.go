package session

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a trading session.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// TradingSession groups one day's trading. Event entries may reference the
// open session; its totals accumulate inside the same transactions that post
// the events, so a closed session's totals are final.
type TradingSession struct {
	ID               int64     `json:"id"`
	Date             time.Time `json:"date"`
	Status           Status    `json:"status"`
	ProcurementTotal float64   `json:"procurement_total"`
	SalesTotal       float64   `json:"sales_total"`
	OpenedAt         time.Time `json:"opened_at"`
	ClosedAt         time.Time `json:"closed_at,omitempty"`
}

var (
	ErrNotFound      = errors.New("session: trading session not found")
	ErrAlreadyOpen   = errors.New("session: a session is already open for this date")
	ErrAlreadyClosed = errors.New("session: trading session already closed")
)
