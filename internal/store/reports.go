package store

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
)

// Totals is an income/expense pair with its balance.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

func (t *Totals) add(tx model.Transaction) {
	if tx.Kind == model.Expense {
		t.Expense = t.Expense.Add(tx.Amount)
	} else {
		t.Income = t.Income.Add(tx.Amount)
	}
	t.Balance = t.Balance.Add(tx.Signed())
}

// MonthTotals are the totals of one "YYYY-MM" month.
type MonthTotals struct {
	Month string `json:"month"`
	Totals
}

// LedgerSummary aggregates transactions between two dates.
type LedgerSummary struct {
	From       string                     `json:"from,omitempty"`
	To         string                     `json:"to,omitempty"`
	Totals     Totals                     `json:"totals"`
	Months     []MonthTotals              `json:"months"`
	Categories map[string]decimal.Decimal `json:"categories"`
}

// LedgerSummary totals transactions dated within [from, to]. Empty bounds
// are open. Category sums are signed.
func (s *Store) LedgerSummary(from, to string) LedgerSummary {
	sum := LedgerSummary{
		From:       from,
		To:         to,
		Categories: map[string]decimal.Decimal{},
	}
	months := map[string]*MonthTotals{}

	for _, tx := range s.Transactions() {
		if (from != "" && tx.Date < from) || (to != "" && tx.Date > to) {
			continue
		}
		sum.Totals.add(tx)

		month := tx.Date
		if len(month) >= 7 {
			month = month[:7]
		}
		mt, ok := months[month]
		if !ok {
			mt = &MonthTotals{Month: month}
			months[month] = mt
		}
		mt.add(tx)

		cat := tx.Category
		if cat == "" {
			cat = "uncategorized"
		}
		sum.Categories[cat] = sum.Categories[cat].Add(tx.Signed())
	}

	sum.Months = make([]MonthTotals, 0, len(months))
	for _, mt := range months {
		sum.Months = append(sum.Months, *mt)
	}
	sort.Slice(sum.Months, func(i, j int) bool { return sum.Months[i].Month < sum.Months[j].Month })
	return sum
}

// AttendanceSummary counts the marks of one date. Unmarked counts active
// members without a mark.
type AttendanceSummary struct {
	Date     string `json:"date"`
	Present  int    `json:"present"`
	Late     int    `json:"late"`
	Absent   int    `json:"absent"`
	Unmarked int    `json:"unmarked"`
}

func (s *Store) AttendanceSummary(date string) AttendanceSummary {
	sum := AttendanceSummary{Date: date}
	marked := map[string]bool{}
	for _, r := range s.Attendance(date) {
		marked[r.MemberID] = true
		switch r.Status {
		case model.Present:
			sum.Present++
		case model.Late:
			sum.Late++
		case model.Absent:
			sum.Absent++
		}
	}
	for _, m := range s.Members() {
		if m.Active && !marked[m.ID] {
			sum.Unmarked++
		}
	}
	return sum
}

// MembersByVoice groups the roster by voice part.
func (s *Store) MembersByVoice() map[model.VoicePart][]model.Member {
	out := map[model.VoicePart][]model.Member{}
	for _, m := range s.Members() {
		v := m.Voice
		if v == "" {
			v = model.VoiceOther
		}
		out[v] = append(out[v], m)
	}
	return out
}
