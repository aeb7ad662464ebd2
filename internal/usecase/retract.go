package usecase

import (
	"context"
	"fmt"

	"STTIngest/internal/domain"
	"STTIngest/internal/ident"
	"STTIngest/internal/ports"
)

// Retraction outcomes, also used as metric labels.
const (
	RetractSpiked    = "spike"
	RetractCancelled = "cancel"
	RetractNone      = "none"
)

// Retract withdraws the record stored under any form of id. Records never
// posted and still in an unpublished state are spiked; the rest are reposted
// as cancelled unless they already are.
// A missing record is not an error.
func Retract(ctx context.Context, store ports.Retractable, id string) (string, error) {
	for _, candidate := range ident.Candidates(id) {
		state, err := store.PostState(ctx, candidate)
		if err != nil {
			return RetractNone, fmt.Errorf("load %s: %w", candidate, err)
		}
		if state == nil {
			continue
		}

		switch {
		case state.PubStatus == "" && state.State.Unpublished():
			if err := store.Spike(ctx, state.ID); err != nil {
				return RetractNone, fmt.Errorf("spike %s: %w", state.ID, err)
			}
			return RetractSpiked, nil
		case state.PubStatus == domain.PostCancelled:
			return RetractNone, nil
		default:
			if err := store.CancelPost(ctx, state.ID, state.ETag); err != nil {
				return RetractNone, fmt.Errorf("cancel %s: %w", state.ID, err)
			}
			return RetractCancelled, nil
		}
	}
	return RetractNone, nil
}
