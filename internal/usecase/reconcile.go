package usecase

import "STTIngest/internal/domain"

// ReconcileCoverages returns the coverage list to store for incoming, given the
// record already stored under the same id (nil on first ingest).
//
// Incoming placeholders are discarded and real coverages are kept. Assignment
// state already recorded on a matching stored coverage survives the update,
// and stored coverages that carry an assignment are never dropped. A single
// placeholder text coverage is installed only when the payload brought no
// real coverage and nothing in the result covers text.
func ReconcileCoverages(existing *domain.Planning, incoming domain.Planning) []domain.Coverage {
	out := make([]domain.Coverage, 0, len(incoming.Coverages)+1)
	for _, c := range incoming.Coverages {
		if c.IsPlaceholder() {
			continue
		}
		c = c.Clone()
		if existing != nil {
			if prev, ok := existing.Coverage(c.CoverageID); ok && prev.AssignedTo != nil {
				at := *prev.AssignedTo
				c.AssignedTo = &at
				c.WorkflowStatus = prev.WorkflowStatus
			}
		}
		out = append(out, c)
	}
	received := len(out)

	if existing != nil {
		for _, prev := range existing.Coverages {
			if prev.IsPlaceholder() || prev.AssignedTo == nil || hasCoverage(out, prev.CoverageID) {
				continue
			}
			out = append(out, prev.Clone())
		}
	}

	if received == 0 && !hasTextCoverage(out) {
		out = append(out, PlaceholderCoverage(incoming))
	}
	return out
}

// PlaceholderCoverage builds the synthetic text coverage for a planning record.
func PlaceholderCoverage(item domain.Planning) domain.Coverage {
	c := domain.Coverage{
		CoverageID:     domain.PlaceholderPrefix + item.GUID,
		WorkflowStatus: domain.StateDraft,
		Flags:          domain.CoverageFlags{Placeholder: true},
		Planning: domain.CoveragePlanning{
			G2ContentType: domain.TypeText,
		},
	}
	if item.PlanningDate != nil {
		ts := *item.PlanningDate
		c.Planning.Scheduled = &ts
	}
	return c
}

func withoutPlaceholders(coverages []domain.Coverage) []domain.Coverage {
	out := coverages[:0:0]
	for _, c := range coverages {
		if !c.IsPlaceholder() {
			out = append(out, c)
		}
	}
	return out
}

func hasCoverage(coverages []domain.Coverage, id string) bool {
	return coverageIndex(coverages, id) >= 0
}

func coverageIndex(coverages []domain.Coverage, id string) int {
	for i := range coverages {
		if coverages[i].CoverageID == id {
			return i
		}
	}
	return -1
}

func hasTextCoverage(coverages []domain.Coverage) bool {
	for _, c := range coverages {
		if !c.IsPlaceholder() && c.IsText() {
			return true
		}
	}
	return false
}
