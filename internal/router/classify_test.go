// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTask_DebugScenario(t *testing.T) {
	c := ClassifyTask("Please help me debug and fix this broken code")

	assert.Equal(t, "debug", c.Type)
	assert.GreaterOrEqual(t, c.Confidence, 0.9)
	assert.LessOrEqual(t, c.Confidence, 1.0)
	assert.Contains(t, c.Keywords, "debug")
	assert.Contains(t, c.Keywords, "fix")
	assert.Equal(t, []string{"debug", "fix", "broken"}, c.Keywords, "keywords follow declaration order")
}

func TestClassifyTask_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		c := ClassifyTask(in)
		assert.Equal(t, TaskUnknown, c.Type)
		assert.Equal(t, 0.0, c.Confidence)
		assert.Empty(t, c.Keywords)
	}
}

func TestClassifyTask_Cases(t *testing.T) {
	tests := []struct {
		name       string
		task       string
		wantType   string
		wantConf   float64
		wantKwords []string
	}{
		{"no match is general", "hello there", TaskGeneral, 0.3, []string{}},
		{"single keyword has no boost", "write a poem", "write", 0.8, []string{"write"}},
		{"multi keyword boost capped", "draft an email", "write", 1.0, []string{"draft", "email"}},
		{"case insensitive", "SUMMARIZE THIS", "summarize", 0.9, []string{"summarize"}},
		{"tie keeps first declared", "summarize the secret", "summarize", 0.9, []string{"summarize"}},
		{"privacy keywords", "This is private and confidential", "sensitive", 1.0, []string{"confidential", "private"}},
		{"multi word keyword", "walk me through this stack trace", "debug", 0.9, []string{"stack trace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ClassifyTask(tt.task)
			assert.Equal(t, tt.wantType, c.Type)
			assert.InDelta(t, tt.wantConf, c.Confidence, 1e-9)
			assert.Equal(t, tt.wantKwords, c.Keywords)
		})
	}
}

func TestClassifyTask_ConfidenceBounds(t *testing.T) {
	tasks := []string{
		"",
		"a",
		"debug fix bug error broken crash exception failing",
		"research investigate compare sources literature",
		"plan roadmap schedule milestone strategy",
		"random words with nothing in them",
	}
	for _, task := range tasks {
		c := ClassifyTask(task)
		assert.GreaterOrEqual(t, c.Confidence, 0.0, task)
		assert.LessOrEqual(t, c.Confidence, 1.0, task)
	}
}

func TestMatchesPrivacyPattern(t *testing.T) {
	assert.True(t, matchesPrivacyPattern("reset my PASSWORD", nil))
	assert.False(t, matchesPrivacyPattern("reset my router", nil))
	assert.True(t, matchesPrivacyPattern("Project Nightjar status", []string{"nightjar"}))
	assert.False(t, matchesPrivacyPattern("anything", []string{"", "  "}))
}

func TestAnalyzeComplexity(t *testing.T) {
	tests := []struct {
		name     string
		taskType string
		task     string
		want     ComplexityProfile
	}{
		{
			name:     "complex type",
			taskType: "research",
			task:     "research rome",
			want:     ComplexityProfile{Level: ComplexityHigh, Confidence: 0.7, RequiresAdvancedReasoning: true},
		},
		{
			name:     "specialized type",
			taskType: "debug",
			task:     "fix it",
			want:     ComplexityProfile{Level: ComplexityMedium, Confidence: 0.7, RequiresSpecialization: true},
		},
		{
			name:     "routine type",
			taskType: "summarize",
			task:     "summarize this",
			want:     ComplexityProfile{Level: ComplexityLow, Confidence: 0.6, IsRoutine: true},
		},
		{
			name:     "other type",
			taskType: "write",
			task:     "write a poem",
			want:     ComplexityProfile{Level: ComplexityMedium, Confidence: 0.5},
		},
		{
			name:     "escalation upgrades routine",
			taskType: "general",
			task:     "give me a comprehensive overview",
			want:     ComplexityProfile{Level: ComplexityHigh, Confidence: 0.7, RequiresAdvancedReasoning: true, IsRoutine: true},
		},
		{
			name:     "batch",
			taskType: "summarize",
			task:     "summarize all files in bulk",
			want:     ComplexityProfile{Level: ComplexityMedium, Confidence: 0.7, IsBatchProcessing: true, IsRoutine: true},
		},
		{
			name:     "brevity never downgrades",
			taskType: "analyze",
			task:     "quick analyze of the architecture",
			want:     ComplexityProfile{Level: ComplexityHigh, Confidence: 0.9, RequiresAdvancedReasoning: true, IsRoutine: true},
		},
		{
			name:     "confidence capped",
			taskType: "code",
			task:     "quick sql regex batch job for a complex legacy system",
			want: ComplexityProfile{
				Level: ComplexityHigh, Confidence: 0.9,
				RequiresAdvancedReasoning: true, RequiresSpecialization: true,
				IsBatchProcessing: true, IsRoutine: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeComplexity(tt.taskType, tt.task)
			assert.Equal(t, tt.want.Level, got.Level)
			assert.InDelta(t, tt.want.Confidence, got.Confidence, 1e-9)
			assert.Equal(t, tt.want.RequiresAdvancedReasoning, got.RequiresAdvancedReasoning)
			assert.Equal(t, tt.want.RequiresSpecialization, got.RequiresSpecialization)
			assert.Equal(t, tt.want.IsBatchProcessing, got.IsBatchProcessing)
			assert.Equal(t, tt.want.IsRoutine, got.IsRoutine)
		})
	}
}
