package domain

import (
	"strings"
	"time"
)

// Part is an inventory item owned by a team.
type Part struct {
	ID                string    `json:"id"`
	TeamID            string    `json:"team_id"`
	Name              string    `json:"name"`
	PartNumber        string    `json:"part_number"`
	Category          string    `json:"category"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Key returns the pagination sort key of the part.
func (p Part) Key() SortKey {
	return SortKey{CreatedAt: p.CreatedAt, ID: p.ID}
}

// MatchesSearch reports a case-insensitive substring hit on name or part number.
func (p Part) MatchesSearch(needle string) bool {
	if needle == "" {
		return true
	}
	needle = strings.ToLower(needle)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.PartNumber), needle)
}

// OutOfStock reports an empty shelf.
func (p Part) OutOfStock() bool {
	return p.Quantity == 0
}

// LowStock reports a part at or under its threshold but not yet empty.
func (p Part) LowStock() bool {
	return p.Quantity > 0 && p.Quantity <= p.LowStockThreshold
}

// InventoryStats summarises a team's parts.
type InventoryStats struct {
	TotalParts      int `json:"total_parts"`
	TotalQuantity   int `json:"total_quantity"`
	LowStockCount   int `json:"low_stock_count"`
	OutOfStockCount int `json:"out_of_stock_count"`
}
