package service

import (
	"testing"
	"time"

	"github.com/leaguedesk/leaguedesk/internal/domain/entity"
)

func TestCanTransitionConversation(t *testing.T) {
	tests := []struct {
		from entity.ConversationState
		to   entity.ConversationState
		want bool
	}{
		{entity.ConvStateNotStarted, entity.ConvStateInitialRequestSent, true},
		{entity.ConvStateNotStarted, entity.ConvStateAutoEnded, true},
		{entity.ConvStateNotStarted, entity.ConvStateGatheringDetails, false},
		{entity.ConvStateNotStarted, entity.ConvStateResponseComplete, false},

		{entity.ConvStateInitialRequestSent, entity.ConvStateGatheringDetails, true},
		{entity.ConvStateInitialRequestSent, entity.ConvStateAutoEnded, true},
		{entity.ConvStateInitialRequestSent, entity.ConvStateResponseComplete, false},
		{entity.ConvStateInitialRequestSent, entity.ConvStateFollowUpNeeded, false},

		{entity.ConvStateGatheringDetails, entity.ConvStateFollowUpNeeded, true},
		{entity.ConvStateGatheringDetails, entity.ConvStateResponseComplete, true},
		{entity.ConvStateGatheringDetails, entity.ConvStateAutoEnded, true},
		{entity.ConvStateGatheringDetails, entity.ConvStateInitialRequestSent, false},

		{entity.ConvStateFollowUpNeeded, entity.ConvStateGatheringDetails, true},
		{entity.ConvStateFollowUpNeeded, entity.ConvStateResponseComplete, true},
		{entity.ConvStateFollowUpNeeded, entity.ConvStateAutoEnded, true},

		// Terminal states admit nothing.
		{entity.ConvStateResponseComplete, entity.ConvStateGatheringDetails, false},
		{entity.ConvStateResponseComplete, entity.ConvStateAutoEnded, false},
		{entity.ConvStateAutoEnded, entity.ConvStateResponseComplete, false},
		{entity.ConvStateAutoEnded, entity.ConvStateNotStarted, false},
	}

	for _, tt := range tests {
		got := CanTransitionConversation(tt.from, tt.to)
		if got != tt.want {
			t.Errorf("CanTransitionConversation(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransitionConversationRejectsInvalidMove(t *testing.T) {
	req := newTestCommentRequest(t)
	req.ConversationState = entity.ConvStateResponseComplete

	if err := TransitionConversation(req, entity.ConvStateGatheringDetails); err == nil {
		t.Fatal("expected error for transition out of terminal state")
	}
	if req.ConversationState != entity.ConvStateResponseComplete {
		t.Errorf("state mutated on rejected transition: %s", req.ConversationState)
	}
}

func TestTransitionConversationAppliesValidMove(t *testing.T) {
	req := newTestCommentRequest(t)

	if err := TransitionConversation(req, entity.ConvStateInitialRequestSent); err != nil {
		t.Fatalf("TransitionConversation() error = %v", err)
	}
	if req.ConversationState != entity.ConvStateInitialRequestSent {
		t.Errorf("state = %s, want %s", req.ConversationState, entity.ConvStateInitialRequestSent)
	}
}

func newTestCommentRequest(t *testing.T) *entity.CommentRequest {
	t.Helper()
	req, err := entity.NewCommentRequest(
		"cr-1", "league-1", "weekly_recap", "content-1", "user-1",
		time.Now(), time.Now().Add(time.Hour),
		entity.AutoEndCriteria{MaxMessages: 8},
	)
	if err != nil {
		t.Fatalf("NewCommentRequest() error = %v", err)
	}
	return req
}
