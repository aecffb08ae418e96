// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"strings"
)

// ============================================================================
// TASK PATTERNS
// ============================================================================

// taskPattern is one named keyword family with its base confidence.
type taskPattern struct {
	Type     string
	Base     float64
	Keywords []string
}

// multiMatchBoost rewards a pattern for more than one corroborating keyword.
const multiMatchBoost = 1.2

// taskPatterns is evaluated in order; the first-declared pattern wins ties.
var taskPatterns = []taskPattern{
	{"debug", 0.9, []string{"debug", "fix", "bug", "error", "broken", "crash", "exception", "stack trace", "failing"}},
	{"summarize", 0.9, []string{"summarize", "summary", "summarise", "tl;dr", "recap", "condense"}},
	{"sensitive", 0.9, sensitiveKeywords},
	{"code", 0.8, []string{"code", "function", "implement", "refactor", "script", "compile", "unit test"}},
	{"research", 0.8, []string{"research", "investigate", "compare", "sources", "literature", "find out"}},
	{"write", 0.8, []string{"write", "draft", "compose", "essay", "email", "blog", "story"}},
	{"analyze", 0.7, []string{"analyze", "analyse", "evaluate", "assess", "trade-off", "insight"}},
	{"plan", 0.7, []string{"plan", "roadmap", "schedule", "milestone", "strategy"}},
}

// sensitiveKeywords double as the privacy pattern applied to raw task text.
var sensitiveKeywords = []string{
	"confidential", "private", "secret", "password", "personal",
	"sensitive", "medical", "salary", "ssn",
}

// generalConfidence is the catch-all confidence when nothing matches.
const generalConfidence = 0.3

// ============================================================================
// CLASSIFICATION FUNCTIONS
// ============================================================================

// ClassifyTask maps raw task text to a type, confidence and matched keywords.
//
// Each pattern scores (matched keywords x base confidence), boosted by 1.2
// when more than one keyword matched, capped at 1.0. The single best pattern
// wins. Empty input is "unknown" with zero confidence; text matching no
// pattern is "general" with 0.3.
func ClassifyTask(task string) TaskClassification {
	if strings.TrimSpace(task) == "" {
		return TaskClassification{Type: TaskUnknown, Confidence: 0, Keywords: []string{}}
	}

	text := strings.ToLower(task)

	best := TaskClassification{Type: TaskGeneral, Confidence: generalConfidence, Keywords: []string{}}
	bestScore := 0.0
	for _, p := range taskPatterns {
		var matched []string
		for _, kw := range p.Keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}

		score := float64(len(matched)) * p.Base
		if len(matched) > 1 {
			score *= multiMatchBoost
		}
		if score > 1.0 {
			score = 1.0
		}

		// Strictly greater: earlier patterns keep ties.
		if score > bestScore {
			bestScore = score
			best = TaskClassification{Type: p.Type, Confidence: score, Keywords: matched}
		}
	}
	return best
}

// matchesPrivacyPattern reports whether text contains a privacy keyword,
// built-in or user-supplied.
func matchesPrivacyPattern(text string, extra []string) bool {
	text = strings.ToLower(text)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	for _, kw := range extra {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
