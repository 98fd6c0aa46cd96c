package notifier

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"FeeRouter/internal/crank"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
)

// Units renders raw quote amounts for people.
type Units struct {
	Symbol   string
	Decimals int32
}

// Amount formats a raw token amount, e.g. 1234500 with 6 decimals as "1.2345 USDC".
func (u Units) Amount(raw uint64) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -u.Decimals)
	if u.Symbol == "" {
		return d.String()
	}
	return d.String() + " " + u.Symbol
}

// FormatDayReport formats the pages a crank run committed.
func FormatDayReport(u Units, r *crank.DayReport) string {
	var b strings.Builder

	status := "⏳ open"
	if r.Closed {
		status = "✅ closed"
	}
	b.WriteString(fmt.Sprintf("💸 <b>FeeRouter day %d</b> | %s\n\n", r.Day, status))
	b.WriteString(fmt.Sprintf("Pages: %d\n", len(r.Pages)))
	if r.Claimed > 0 {
		b.WriteString(fmt.Sprintf("Claimed: %s\n", u.Amount(r.Claimed)))
	}
	b.WriteString(fmt.Sprintf("Investors paid: %d (%s)\n", r.InvestorsPaid(), u.Amount(r.Distributed)))
	if r.Withheld > 0 || r.CapOverflow > 0 {
		b.WriteString(fmt.Sprintf("Carried over: %s withheld, %s above cap\n",
			u.Amount(r.Withheld), u.Amount(r.CapOverflow)))
	}
	if r.RoundingDust > 0 {
		b.WriteString(fmt.Sprintf("Rounding dust: %s\n", u.Amount(r.RoundingDust)))
	}
	if r.Closed {
		b.WriteString(fmt.Sprintf("Creator: %s\n", u.Amount(r.CreatorAmount)))
	}
	return b.String()
}

// FormatStatus formats the crank status for display.
func FormatStatus(u Units, s *crank.Status) string {
	p := s.Progress
	var b strings.Builder
	b.WriteString("📦 <b>Distribution progress</b>\n\n")
	if s.Quarantined {
		b.WriteString("🚫 QUARANTINED: base fees detected, run feerouter sweep-base\n")
	}
	b.WriteString(fmt.Sprintf("Day: %d (page %d, %d investors)\n", p.CurrentDay, p.CurrentPage, p.InvestorsProcessedToday))
	b.WriteString(fmt.Sprintf("Day pool: %s\n", u.Amount(p.DayTotalAvailable)))
	b.WriteString(fmt.Sprintf("Paid to investors: %s\n", u.Amount(p.DailyDistributedToInvestors)))
	b.WriteString(fmt.Sprintf("Carry-over: %s\n", u.Amount(p.CarryOver)))
	b.WriteString(fmt.Sprintf("Rounding dust (total): %s\n", u.Amount(p.TotalRoundingDust)))
	b.WriteString(fmt.Sprintf("Treasury: %s\n", u.Amount(s.TreasuryBalance)))
	b.WriteString(fmt.Sprintf("Creator paid: %v\n", p.CreatorPayoutSent))
	if p.TotalInvestors > 0 {
		b.WriteString(fmt.Sprintf("Committed investors: %d\n", p.TotalInvestors))
	}
	if s.NextWindow > 0 {
		b.WriteString(fmt.Sprintf("Next window: %s\n", time.Unix(s.NextWindow, 0).UTC().Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatPolicy formats the immutable distribution policy.
func FormatPolicy(u Units, p model.Policy) string {
	share := decimal.NewFromInt(int64(p.MaxInvestorShareBps)).Shift(-2)
	dailyCap := "none"
	if p.DailyCap > 0 {
		dailyCap = u.Amount(p.DailyCap)
	}
	var b strings.Builder
	b.WriteString("📜 <b>Policy</b>\n\n")
	b.WriteString(fmt.Sprintf("Baseline allocation: %s\n", u.Amount(p.BaselineAllocation)))
	b.WriteString(fmt.Sprintf("Max investor share: %s%%\n", share.String()))
	b.WriteString(fmt.Sprintf("Daily cap: %s\n", dailyCap))
	b.WriteString(fmt.Sprintf("Min payout: %s\n", u.Amount(p.MinPayout)))
	b.WriteString(fmt.Sprintf("Quote mint: <code>%s</code>\n", p.QuoteMint))
	b.WriteString(fmt.Sprintf("Creator: <code>%s</code>\n", p.CreatorWallet))
	return b.String()
}

// FormatFailure formats a rejected crank call. Gating rejections are routine
// and return an empty string.
func FormatFailure(err error) string {
	switch errors.CategoryOf(err) {
	case errors.CategoryNone, errors.CategoryGating:
		return ""
	case errors.CategoryContamination:
		return fmt.Sprintf("🚫 <b>Distribution quarantined</b>\n\nBase currency fees were claimed. No payouts run until the base fees are swept with <code>feerouter sweep-base</code>.\n\n%v", err)
	default:
		return fmt.Sprintf("❌ <b>Crank failed</b> (%s)\n\n%v", errors.CategoryOf(err), err)
	}
}

// Help lists the supported commands.
func Help() string {
	return "Commands:\n• /progress  distribution progress\n• /policy  distribution policy\n• /crank  run the next day now"
}
