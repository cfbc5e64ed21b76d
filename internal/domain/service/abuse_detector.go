package service

import (
	"regexp"
	"strings"
)

// AbuseSeverity grades a detected pattern. Medium and above ends the
// conversation instead of sending another follow-up; abuse is a normal
// termination reason, not an error.
type AbuseSeverity int

const (
	AbuseNone AbuseSeverity = iota
	AbuseLow
	AbuseMedium
	AbuseHigh
)

func (s AbuseSeverity) String() string {
	switch s {
	case AbuseLow:
		return "low"
	case AbuseMedium:
		return "medium"
	case AbuseHigh:
		return "high"
	default:
		return "none"
	}
}

// ShouldTerminate reports whether the conversation must end.
func (s AbuseSeverity) ShouldTerminate() bool {
	return s >= AbuseMedium
}

// AbuseResult names what tripped and how badly.
type AbuseResult struct {
	Severity AbuseSeverity
	Pattern  string
}

var (
	linkRe    = regexp.MustCompile(`https?://\S+`)
	capsRunRe = regexp.MustCompile(`[A-Z]{20,}`)
)

// hasRepeatedRun reports whether text contains n or more consecutive
// identical runes. RE2 has no backreferences, so this is a plain scan.
func hasRepeatedRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

// Phrases that indicate the user is probing the assistant instead of talking
// about their league.
var modelProbePhrases = []string{
	"ignore previous instructions",
	"ignore your instructions",
	"system prompt",
	"you are an ai",
	"are you chatgpt",
	"are you an llm",
	"what model are you",
	"jailbreak",
	"pretend you are",
}

// AbuseDetector applies keyword and spam heuristics to user replies before a
// follow-up goes out.
type AbuseDetector struct {
	offTopicKeywords []string
	maxLength        int
}

// NewAbuseDetector creates a detector. offTopicKeywords come from the content
// template registry; maxLength caps a single reply (default 4000 runes).
func NewAbuseDetector(offTopicKeywords []string, maxLength int) *AbuseDetector {
	if maxLength <= 0 {
		maxLength = 4000
	}
	return &AbuseDetector{
		offTopicKeywords: offTopicKeywords,
		maxLength:        maxLength,
	}
}

// Check inspects a user reply.
func (d *AbuseDetector) Check(text string) AbuseResult {
	lower := strings.ToLower(text)

	for _, phrase := range modelProbePhrases {
		if strings.Contains(lower, phrase) {
			return AbuseResult{Severity: AbuseHigh, Pattern: "model_interrogation"}
		}
	}

	if len([]rune(text)) > d.maxLength {
		return AbuseResult{Severity: AbuseMedium, Pattern: "excessive_length"}
	}
	if hasRepeatedRun(text, 10) {
		return AbuseResult{Severity: AbuseMedium, Pattern: "repeated_characters"}
	}
	if linkRe.MatchString(text) {
		return AbuseResult{Severity: AbuseMedium, Pattern: "embedded_link"}
	}
	if capsRunRe.MatchString(text) {
		return AbuseResult{Severity: AbuseMedium, Pattern: "all_caps_run"}
	}

	for _, kw := range d.offTopicKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return AbuseResult{Severity: AbuseLow, Pattern: "off_topic_keyword"}
		}
	}

	return AbuseResult{Severity: AbuseNone}
}
