package service

import "testing"

func TestEvaluateContinuation(t *testing.T) {
	tests := []struct {
		name         string
		in           ContinuationInput
		wantContinue bool
		wantReason   string
	}{
		{
			name: "message budget spent stops even with perfect reply",
			in: ContinuationInput{
				CurrentMessageCount: 8, MaxMessages: 8,
				ResponseQuality: 90, Completeness: 90,
			},
			wantContinue: false,
			wantReason:   ReasonMaxMessages,
		},
		{
			name: "budget overrun stops too",
			in: ContinuationInput{
				CurrentMessageCount: 9, MaxMessages: 8,
			},
			wantContinue: false,
			wantReason:   ReasonMaxMessages,
		},
		{
			name: "off topic stops before quality is considered",
			in: ContinuationInput{
				CurrentMessageCount: 3, MaxMessages: 8,
				OffTopicScore: 80, QuotableSegments: 3, ResponseQuality: 90,
			},
			wantContinue: false,
			wantReason:   ReasonOffTopic,
		},
		{
			name: "off topic exactly at threshold does not stop",
			in: ContinuationInput{
				CurrentMessageCount: 3, MaxMessages: 8,
				OffTopicScore: 70, Completeness: 40,
			},
			wantContinue: true,
			wantReason:   ReasonLowQuality,
		},
		{
			name: "two quotable segments of decent quality are sufficient",
			in: ContinuationInput{
				CurrentMessageCount: 4, MaxMessages: 8,
				QuotableSegments: 2, ResponseQuality: 70, Completeness: 80,
			},
			wantContinue: false,
			wantReason:   ReasonSufficientMaterial,
		},
		{
			name: "quotable segments without quality keep going",
			in: ContinuationInput{
				CurrentMessageCount: 4, MaxMessages: 8,
				QuotableSegments: 2, ResponseQuality: 50, Completeness: 70,
			},
			wantContinue: true,
			wantReason:   ReasonLowQuality,
		},
		{
			name: "incomplete but on topic continues",
			in: ContinuationInput{
				CurrentMessageCount: 2, MaxMessages: 8,
				Completeness: 40, OffTopicScore: 10, ResponseQuality: 80,
			},
			wantContinue: true,
			wantReason:   ReasonIncomplete,
		},
		{
			name: "incomplete and drifting falls through to quality check",
			in: ContinuationInput{
				CurrentMessageCount: 2, MaxMessages: 8,
				Completeness: 40, OffTopicScore: 50, ResponseQuality: 80,
			},
			wantContinue: false,
			wantReason:   ReasonGoodEnough,
		},
		{
			name: "first reply always gets a follow-up",
			in: ContinuationInput{
				CurrentMessageCount: 1, MaxMessages: 8,
				Completeness: 10, ResponseQuality: 10, OffTopicScore: 60,
				IsFirstReply: true,
			},
			wantContinue: true,
			wantReason:   ReasonFirstReply,
		},
		{
			name: "good enough later reply stops",
			in: ContinuationInput{
				CurrentMessageCount: 5, MaxMessages: 8,
				Completeness: 85, ResponseQuality: 75, QuotableSegments: 1,
			},
			wantContinue: false,
			wantReason:   ReasonGoodEnough,
		},
		{
			name: "mediocre later reply continues",
			in: ContinuationInput{
				CurrentMessageCount: 5, MaxMessages: 8,
				Completeness: 85, ResponseQuality: 60,
			},
			wantContinue: true,
			wantReason:   ReasonLowQuality,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateContinuation(tt.in)
			if got.Continue != tt.wantContinue {
				t.Errorf("Continue = %v, want %v", got.Continue, tt.wantContinue)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}
