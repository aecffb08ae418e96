// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import "strings"

// ============================================================================
// COMPLEXITY ANALYSIS
// ============================================================================

var (
	complexTypes     = map[string]bool{"research": true, "analyze": true, "plan": true}
	specializedTypes = map[string]bool{"debug": true, "code": true}
	routineTypes     = map[string]bool{"summarize": true, "general": true, "sensitive": true, TaskUnknown: true}

	escalatingKeywords = []string{
		"complex", "comprehensive", "in-depth", "architecture", "multi-step",
		"trade-off", "end-to-end", "rigorous",
	}
	specializationKeywords = []string{
		"algorithm", "regex", "sql", "kubernetes", "compiler", "concurrency",
		"security audit", "legacy",
	}
	batchKeywords = []string{
		"batch", "bulk", "all files", "every file", "each of", "multiple files",
	}
	brevityKeywords = []string{
		"quick", "brief", "short", "simple", "one-line", "tl;dr",
	}
)

const (
	maxComplexityConfidence = 0.9
	familyConfidenceStep    = 0.1
)

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// AnalyzeComplexity derives a complexity profile from the task type and text.
// Keyword families only ever raise the level.
func AnalyzeComplexity(taskType, task string) ComplexityProfile {
	var p ComplexityProfile
	switch {
	case complexTypes[taskType]:
		p = ComplexityProfile{Level: ComplexityHigh, Confidence: 0.7, RequiresAdvancedReasoning: true}
	case specializedTypes[taskType]:
		p = ComplexityProfile{Level: ComplexityMedium, Confidence: 0.7, RequiresSpecialization: true}
	case routineTypes[taskType]:
		p = ComplexityProfile{Level: ComplexityLow, Confidence: 0.6, IsRoutine: true}
	default:
		p = ComplexityProfile{Level: ComplexityMedium, Confidence: 0.5}
	}

	text := strings.ToLower(task)
	bump := func() {
		p.Confidence += familyConfidenceStep
		if p.Confidence > maxComplexityConfidence {
			p.Confidence = maxComplexityConfidence
		}
	}
	raiseTo := func(level ComplexityLevel) {
		if p.Level < level {
			p.Level = level
		}
	}

	if containsAny(text, escalatingKeywords) {
		raiseTo(ComplexityHigh)
		p.RequiresAdvancedReasoning = true
		bump()
	}
	if containsAny(text, specializationKeywords) {
		raiseTo(ComplexityMedium)
		p.RequiresSpecialization = true
		bump()
	}
	if containsAny(text, batchKeywords) {
		raiseTo(ComplexityMedium)
		p.IsBatchProcessing = true
		bump()
	}
	if containsAny(text, brevityKeywords) {
		p.IsRoutine = true
		bump()
	}
	return p
}
