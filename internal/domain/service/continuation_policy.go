package service

// ContinuationDecision is the outcome of evaluating a user reply.
type ContinuationDecision struct {
	Continue bool
	Reason   string
}

// ContinuationInput is everything the policy looks at. It is assembled from
// the freshest persisted state inside the processing step, never from stale
// in-memory values carried across tasks.
type ContinuationInput struct {
	CurrentMessageCount int
	MaxMessages         int
	OffTopicScore       int // 0-100
	QuotableSegments    int
	ResponseQuality     int // 0-100
	Completeness        int // 0-100
	IsFirstReply        bool
}

// Decision reasons, stored on the request and asserted on in tests.
const (
	ReasonMaxMessages        = "max_messages_reached"
	ReasonOffTopic           = "off_topic"
	ReasonSufficientMaterial = "sufficient_material"
	ReasonIncomplete         = "incomplete_response"
	ReasonFirstReply         = "first_reply_follow_up"
	ReasonLowQuality         = "low_quality_follow_up"
	ReasonGoodEnough         = "good_enough_response"
)

// EvaluateContinuation decides whether to ask a follow-up or end the
// conversation. Pure function; rule order matters:
//
//  1. stop when the message budget is spent
//  2. stop when the reply has drifted off topic (score > 70)
//  3. stop when we already hold at least 2 quotable segments of decent
//     quality (>= 70)
//  4. continue when the reply is incomplete (< 60) but still on topic (< 30)
//  5. continue unconditionally on the first reply, guaranteeing at least one
//     follow-up exchange
//  6. otherwise continue only while quality is below 70; a good-enough
//     response with no other continue-signal ends the conversation
func EvaluateContinuation(in ContinuationInput) ContinuationDecision {
	if in.CurrentMessageCount >= in.MaxMessages {
		return ContinuationDecision{Continue: false, Reason: ReasonMaxMessages}
	}
	if in.OffTopicScore > 70 {
		return ContinuationDecision{Continue: false, Reason: ReasonOffTopic}
	}
	if in.QuotableSegments >= 2 && in.ResponseQuality >= 70 {
		return ContinuationDecision{Continue: false, Reason: ReasonSufficientMaterial}
	}
	if in.Completeness < 60 && in.OffTopicScore < 30 {
		return ContinuationDecision{Continue: true, Reason: ReasonIncomplete}
	}
	if in.IsFirstReply {
		return ContinuationDecision{Continue: true, Reason: ReasonFirstReply}
	}
	if in.ResponseQuality < 70 {
		return ContinuationDecision{Continue: true, Reason: ReasonLowQuality}
	}
	return ContinuationDecision{Continue: false, Reason: ReasonGoodEnough}
}
