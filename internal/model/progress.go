package model

// Progress is the mutable distribution cursor. It is persisted between
// calls and only replaced when a page commits.
type Progress struct {
	LastDistributionTs          int64  `json:"last_distribution_ts"`
	CurrentDay                  uint64 `json:"current_day"`
	DailyDistributedToInvestors uint64 `json:"daily_distributed_to_investors"`
	CarryOver                   uint64 `json:"carry_over"`
	CurrentPage                 uint16 `json:"current_page"`
	PagesProcessedToday         uint16 `json:"pages_processed_today"`
	TotalInvestors              uint16 `json:"total_investors"` // 0 = not committed
	CreatorPayoutSent           bool   `json:"creator_payout_sent"`
	HasBaseFees                 bool   `json:"has_base_fees"`
	TotalRoundingDust           uint64 `json:"total_rounding_dust"`

	// Day bookkeeping, reset when a day opens.
	DayTotalAvailable       uint64 `json:"day_total_available"`
	DayLockedTotal          uint64 `json:"day_locked_total"`
	DayInvestorAllocation   uint64 `json:"day_investor_allocation"`
	InvestorsProcessedToday uint16 `json:"investors_processed_today"`
}

// DayOpen reports whether the current day has started and its final page
// has not run yet.
func (p *Progress) DayOpen() bool {
	return p.CurrentDay > 0 && !p.CreatorPayoutSent
}
