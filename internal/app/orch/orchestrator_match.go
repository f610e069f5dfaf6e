package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/heartlink/internal/domain"
	"github.com/rs/zerolog/log"
)

// Unmatch closes a match on behalf of one of its parties and hangs up any
// call still running between the pair.
func (o *Orchestrator) Unmatch(ctx context.Context, uid domain.UserID, matchID string) error {
	if o.Unmatcher == nil {
		return fmt.Errorf("%w: unmatching is not available", domain.ErrNotFound)
	}
	partner, err := o.Matches.PartnerOf(ctx, matchID, uid)
	if err != nil {
		return fmt.Errorf("resolve match %s: %w", matchID, err)
	}
	if err := o.Unmatcher.Deactivate(ctx, matchID); err != nil {
		return fmt.Errorf("close match %s: %w", matchID, err)
	}

	for _, s := range o.Calls.ActiveCalls(uid) {
		if s.Involves(partner) {
			if err := o.Calls.End(s.ID, uid); err != nil {
				log.Warn().Err(err).Str("module", "orch").Str("call_id", string(s.ID)).Msg("end call on unmatch")
			}
		}
	}
	log.Info().Str("module", "orch").Str("match", matchID).Str("user", string(uid)).Msg("match closed")
	return nil
}
