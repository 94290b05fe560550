package webapp

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestSuccessRate tests the success rate formatting
func TestSuccessRate(t *testing.T) {
	tests := []struct {
		name     string
		stat     ToolStat
		expected string
	}{
		{
			name:     "All succeeded",
			stat:     ToolStat{Invocations: 10, Failures: 0},
			expected: "100%",
		},
		{
			name:     "Half failed",
			stat:     ToolStat{Invocations: 10, Failures: 5},
			expected: "50%",
		},
		{
			name:     "All failed",
			stat:     ToolStat{Invocations: 4, Failures: 4},
			expected: "0%",
		},
		{
			name:     "No runs",
			stat:     ToolStat{},
			expected: "-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := successRate(tt.stat); got != tt.expected {
				t.Errorf("successRate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestAverageDuration tests the mean duration formatting
func TestAverageDuration(t *testing.T) {
	tests := []struct {
		name     string
		stat     ToolStat
		expected string
	}{
		{
			name:     "Sub-second average",
			stat:     ToolStat{Invocations: 4, TotalDurationMS: 200},
			expected: "50 ms",
		},
		{
			name:     "Second scale average",
			stat:     ToolStat{Invocations: 2, TotalDurationMS: 3000},
			expected: "1.5 s",
		},
		{
			name:     "No runs",
			stat:     ToolStat{},
			expected: "-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := averageDuration(tt.stat); got != tt.expected {
				t.Errorf("averageDuration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestStatsResponseDecode tests that the usage payload decodes
func TestStatsResponseDecode(t *testing.T) {
	payload := `{
		"tools": [
			{
				"toolName": "pdf_page_counter",
				"invocations": 12,
				"failures": 1,
				"totalDurationMs": 480,
				"lastUsed": "2026-08-20T10:30:00Z"
			},
			{
				"toolName": "pdf_splitter",
				"invocations": 3,
				"failures": 0,
				"totalDurationMs": 2100,
				"lastUsed": "2026-08-19T09:00:00Z"
			}
		],
		"metadata": {
			"lastRecalculation": "2026-08-20T11:00:00Z",
			"totalRunsProcessed": 15,
			"totalToolsTracked": 2,
			"version": 3
		},
		"count": 2
	}`

	var resp statsResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("Failed to decode stats payload: %v", err)
	}

	if resp.Count != 2 || len(resp.Tools) != 2 {
		t.Fatalf("Expected 2 tools, got count=%d len=%d", resp.Count, len(resp.Tools))
	}

	counter := resp.Tools[0]
	if counter.ToolName != "pdf_page_counter" {
		t.Errorf("ToolName = %v, want pdf_page_counter", counter.ToolName)
	}
	if counter.Invocations != 12 || counter.Failures != 1 {
		t.Errorf("Counters = %d/%d, want 12/1", counter.Invocations, counter.Failures)
	}
	if counter.TotalDurationMS != 480 {
		t.Errorf("TotalDurationMS = %d, want 480", counter.TotalDurationMS)
	}

	meta := resp.Metadata
	if meta.TotalRunsProcessed != 15 || meta.TotalToolsTracked != 2 || meta.Version != 3 {
		t.Errorf("Unexpected metadata: %+v", meta)
	}

	t.Log("Stats payload decoded successfully")
}

// TestMetadataLine tests the recalculation summary line
func TestMetadataLine(t *testing.T) {
	t.Run("Without metadata", func(t *testing.T) {
		page := &StatsPage{
			stats: []ToolStat{{ToolName: "pdf_page_counter"}},
		}
		line := page.metadataLine()
		if !strings.Contains(line, "1 tools tracked") {
			t.Errorf("metadataLine() = %v, want tool count fallback", line)
		}
	})

	t.Run("With metadata", func(t *testing.T) {
		page := &StatsPage{
			metadata: StatsMetadata{
				LastRecalculation:  "2026-08-20T11:00:00Z",
				TotalRunsProcessed: 15,
				TotalToolsTracked:  2,
				Version:            3,
			},
		}
		line := page.metadataLine()
		if !strings.Contains(line, "15 runs across 2 tools") {
			t.Errorf("metadataLine() = %v, want run and tool counts", line)
		}
		if !strings.Contains(line, "version 3") {
			t.Errorf("metadataLine() = %v, want version", line)
		}
	})
}

// TestStatsPageRenderStates tests that different states produce valid UI
func TestStatsPageRenderStates(t *testing.T) {
	t.Run("Loading state returns valid UI", func(t *testing.T) {
		page := &StatsPage{loading: true}
		if ui := page.Render(); ui == nil {
			t.Error("Loading state should return non-nil UI")
		}
	})

	t.Run("Error state returns valid UI", func(t *testing.T) {
		page := &StatsPage{error: "Network error"}
		if ui := page.Render(); ui == nil {
			t.Error("Error state should return non-nil UI")
		}
	})

	t.Run("Empty state returns valid UI", func(t *testing.T) {
		page := &StatsPage{}
		if ui := page.Render(); ui == nil {
			t.Error("Empty state should return non-nil UI")
		}
	})

	t.Run("Populated state returns valid UI", func(t *testing.T) {
		page := &StatsPage{
			stats: []ToolStat{
				{ToolName: "pdf_page_counter", Invocations: 12, Failures: 1, TotalDurationMS: 480},
			},
			metadata: StatsMetadata{Version: 1, TotalToolsTracked: 1, TotalRunsProcessed: 12},
		}
		if ui := page.Render(); ui == nil {
			t.Error("Populated state should return non-nil UI")
		}
	})
}
