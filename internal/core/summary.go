package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// KeyAmount is an amount aggregated by a time bucket key.
type KeyAmount struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthView is the aggregate view of one selected month.
type MonthView struct {
	Month       string
	Total       decimal.Decimal
	Count       int
	TopCategory string
	ByCategory  []CategoryAmount // ordered by name
	ByWeek      []KeyAmount      // ordered by week key
	ByMonth     []KeyAmount      // whole ledger, ordered by month key
}

// CategoryMap returns the category breakdown as a map.
func (v MonthView) CategoryMap() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(v.ByCategory))
	for _, c := range v.ByCategory {
		m[c.Name] = c.Amount
	}
	return m
}

// SortKeyAmounts orders bucket sums by key, keeping UnknownKey last.
func SortKeyAmounts(s []KeyAmount) {
	sort.Slice(s, func(i, j int) bool {
		return lessKey(s[i].Key, s[j].Key)
	})
}
