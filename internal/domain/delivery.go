package domain

import "time"

// Delivery is a provisional row correlating a planning/coverage pair to a content item.
// AssignmentID stays empty until the coverage's assignment is resolved.
type Delivery struct {
	ID           string    `json:"_id"`
	PlanningID   string    `json:"planning_id"`
	CoverageID   string    `json:"coverage_id"`
	ItemID       string    `json:"item_id"`
	AssignmentID string    `json:"assignment_id,omitempty"`
	CreatedAt    time.Time `json:"_created"`
}

// DeliveryFilter selects ledger rows. Empty fields do not constrain the query.
type DeliveryFilter struct {
	PlanningID     string
	CoverageID     string
	ItemIDs        []string
	UnresolvedOnly bool
}

// Matches applies the filter to a single row.
func (f DeliveryFilter) Matches(d Delivery) bool {
	if f.PlanningID != "" && d.PlanningID != f.PlanningID {
		return false
	}
	if f.CoverageID != "" && d.CoverageID != f.CoverageID {
		return false
	}
	if f.UnresolvedOnly && d.AssignmentID != "" {
		return false
	}
	if len(f.ItemIDs) > 0 {
		for _, id := range f.ItemIDs {
			if d.ItemID == id {
				return true
			}
		}
		return false
	}
	return true
}
