package valueobject

// MessageAnalysis is the per-turn scoring produced by the language model for
// a user response. Scores are 0-100.
type MessageAnalysis struct {
	Sentiment        string   `json:"sentiment"`
	Completeness     int      `json:"completeness"`
	RelevantTopics   []string `json:"relevant_topics,omitempty"`
	QuotableSegments []string `json:"quotable_segments,omitempty"`
	OffTopicScore    int      `json:"off_topic_score"`
	ResponseQuality  int      `json:"response_quality"`
}

// RelevanceMetadata scores a finished conversation for downstream use.
type RelevanceMetadata struct {
	TopicRelevance  int      `json:"topic_relevance"`
	QualityScore    int      `json:"quality_score"`
	Originality     int      `json:"originality"`
	UsabilityRating int      `json:"usability_rating"`
	ExtractedQuotes []string `json:"extracted_quotes,omitempty"`
	KeyInsights     []string `json:"key_insights,omitempty"`
}
