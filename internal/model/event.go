package model

import (
	"github.com/gagliardetto/solana-go"
)

// EventKind identifies an audit event type.
type EventKind uint8

const (
	EventPositionInitialized EventKind = iota + 1
	EventFeesClaimed
	EventPageSettled
	EventDayClosed
)

func (k EventKind) String() string {
	switch k {
	case EventPositionInitialized:
		return "position_initialized"
	case EventFeesClaimed:
		return "fees_claimed"
	case EventPageSettled:
		return "page_settled"
	case EventDayClosed:
		return "day_closed"
	default:
		return "unknown"
	}
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, bool) {
	for k := EventPositionInitialized; k <= EventDayClosed; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Event is an audit record emitted by a successful operation.
type Event interface {
	Kind() EventKind
	Time() int64
}

// PositionInitialized is emitted once when the fee position is registered.
type PositionInitialized struct {
	Position  solana.PublicKey `json:"position"`
	Pool      solana.PublicKey `json:"pool"`
	Owner     solana.PublicKey `json:"owner"`
	QuoteMint solana.PublicKey `json:"quote_mint"`
	Timestamp int64            `json:"timestamp"`
}

func (PositionInitialized) Kind() EventKind { return EventPositionInitialized }
func (e PositionInitialized) Time() int64   { return e.Timestamp }

// FeesClaimed is emitted by page 0 after a clean claim.
type FeesClaimed struct {
	Day       uint64 `json:"day"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

func (FeesClaimed) Kind() EventKind { return EventFeesClaimed }
func (e FeesClaimed) Time() int64   { return e.Timestamp }

// PageSettled is emitted by every successful page.
type PageSettled struct {
	Day              uint64 `json:"day"`
	PageIndex        uint16 `json:"page_index"`
	InvestorsPaid    uint16 `json:"investors_paid"`
	TotalDistributed uint64 `json:"total_distributed"`
	RoundingDust     uint64 `json:"rounding_dust"`
	Timestamp        int64  `json:"timestamp"`
}

func (PageSettled) Kind() EventKind { return EventPageSettled }
func (e PageSettled) Time() int64   { return e.Timestamp }

// DayClosed is emitted by the final page of a day.
type DayClosed struct {
	Day                         uint64 `json:"day"`
	CreatorAmount               uint64 `json:"creator_amount"`
	TotalDistributedToInvestors uint64 `json:"total_distributed_to_investors"`
	Timestamp                   int64  `json:"timestamp"`
}

func (DayClosed) Kind() EventKind { return EventDayClosed }
func (e DayClosed) Time() int64   { return e.Timestamp }
