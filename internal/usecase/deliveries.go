package usecase

import (
	"context"
	"fmt"

	"STTIngest/internal/domain"
	"STTIngest/internal/ident"
	"STTIngest/internal/ports"
)

// RecordDeliveries writes one ledger row per delivered item reference of item
// not yet recorded for its coverage. Content ids are stored normalized.
// References on unknown or already assigned coverages are ignored.
func RecordDeliveries(ctx context.Context, ledger ports.DeliveryLedger, item domain.Planning) (int, error) {
	if ledger == nil || item.ID == "" {
		return 0, nil
	}

	seen := map[string]struct{}{}
	var rows []domain.Delivery
	for _, ref := range item.Deliveries {
		if ref.CoverageID == "" || len(ref.ItemIDs) == 0 {
			continue
		}
		cov, ok := item.Coverage(ref.CoverageID)
		if !ok || cov.AssignmentID() != "" {
			continue
		}

		recorded, err := ledger.Find(ctx, domain.DeliveryFilter{
			PlanningID: item.ID,
			CoverageID: ref.CoverageID,
		})
		if err != nil {
			return 0, fmt.Errorf("find deliveries for %s/%s: %w", item.ID, ref.CoverageID, err)
		}
		for _, d := range recorded {
			seen[deliveryKey(d.CoverageID, d.ItemID)] = struct{}{}
		}

		for _, raw := range ref.ItemIDs {
			itemID := ident.Normalize(raw)
			if itemID == "" {
				continue
			}
			key := deliveryKey(ref.CoverageID, itemID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			rows = append(rows, domain.Delivery{
				PlanningID: item.ID,
				CoverageID: ref.CoverageID,
				ItemID:     itemID,
			})
		}
	}

	if len(rows) == 0 {
		return 0, nil
	}
	if _, err := ledger.Post(ctx, rows); err != nil {
		return 0, fmt.Errorf("post deliveries for %s: %w", item.ID, err)
	}
	return len(rows), nil
}

func deliveryKey(coverageID, itemID string) string {
	return coverageID + "\x00" + itemID
}
