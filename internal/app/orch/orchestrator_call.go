package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
)

// StartCall checks the pair is matched and rings the receiver. An offline
// receiver is told about the missed call by push.
func (o *Orchestrator) StartCall(ctx context.Context, caller, receiver domain.UserID, callType domain.CallType) (domain.CallID, error) {
	if caller == receiver {
		return "", fmt.Errorf("%w: cannot call yourself", domain.ErrInvalidInput)
	}
	ok, err := o.Matches.IsAuthorizedPair(ctx, caller, receiver)
	if err != nil {
		return "", fmt.Errorf("check match: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s and %s are not matched", domain.ErrNotAuthorized, caller, receiver)
	}

	id, err := o.Calls.Initiate(caller, receiver, callType)
	if errors.Is(err, domain.ErrPeerOffline) && o.Calls.Registry.IsOnline(caller) {
		name := o.Profile(ctx, caller).Username
		o.push(ctx, receiver, core.PushNotification{
			Kind:  "missed_call",
			Title: name,
			Body:  "tried to " + string(callType) + " call you",
			Data:  map[string]string{"caller_id": string(caller), "call_type": string(callType)},
		})
	}
	return id, err
}
