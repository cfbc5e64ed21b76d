package service

import (
	"fmt"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
)

// validConversationTransitions defines the allowed dialogue-state moves.
// Key = from state, value = set of allowed target states.
//
// auto_ended is reachable from every non-terminal state because the
// expiration task can fire at any point before completion.
var validConversationTransitions = map[entity.ConversationState]map[entity.ConversationState]bool{
	entity.ConvStateNotStarted: {
		entity.ConvStateInitialRequestSent: true,
		entity.ConvStateAutoEnded:          true,
	},
	entity.ConvStateInitialRequestSent: {
		entity.ConvStateGatheringDetails: true,
		entity.ConvStateAutoEnded:        true,
	},
	entity.ConvStateGatheringDetails: {
		entity.ConvStateFollowUpNeeded:   true,
		entity.ConvStateResponseComplete: true,
		entity.ConvStateAutoEnded:        true,
	},
	entity.ConvStateFollowUpNeeded: {
		entity.ConvStateGatheringDetails: true,
		entity.ConvStateResponseComplete: true,
		entity.ConvStateAutoEnded:        true,
	},
	// Terminal states admit no transitions out
	entity.ConvStateResponseComplete: {},
	entity.ConvStateAutoEnded:        {},
}

// CanTransitionConversation reports whether the move is allowed.
func CanTransitionConversation(from, to entity.ConversationState) bool {
	allowed, ok := validConversationTransitions[from]
	return ok && allowed[to]
}

// TransitionConversation applies a dialogue-state move on the request,
// rejecting anything outside the transition table. Callers re-fetch the
// request first and treat a terminal from-state as a signal to no-op.
func TransitionConversation(req *entity.CommentRequest, to entity.ConversationState) error {
	from := req.ConversationState
	if !CanTransitionConversation(from, to) {
		return fmt.Errorf("invalid conversation transition: %s → %s", from, to)
	}
	req.ConversationState = to
	return nil
}
