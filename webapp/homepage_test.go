package webapp

import (
	"encoding/json"
	"testing"
)

// TestPaginatedResponseDecode tests decoding the latest invocations payload.
// Invocation records serialize with Go field names, so the keys here match
// the backend's wire format exactly.
func TestPaginatedResponseDecode(t *testing.T) {
	payload := `{
		"invocations": [
			{
				"ID": 7,
				"ToolName": "pdf_page_counter",
				"FileName": "report.pdf",
				"FileHash": "9e107d9d372bb6826bd81d3542a419d6",
				"FileSize": 52031,
				"ULID": "01J0000000000000000000TEST",
				"Status": "completed",
				"Summary": "3",
				"Error": "",
				"Results": "[]",
				"ResultDir": "",
				"PageCount": 3,
				"DurationMS": 21,
				"InvokedAt": "2026-08-20T10:30:00Z"
			},
			{
				"ID": 8,
				"ToolName": "pdf_splitter",
				"FileName": "contract.pdf",
				"ULID": "01J0000000000000000000SPLT",
				"Status": "failed",
				"Error": "Invalid PDF file: EOF",
				"Results": "",
				"PageCount": 0,
				"DurationMS": 2,
				"InvokedAt": "2026-08-20T10:31:00Z"
			}
		],
		"page": 1,
		"pageSize": 20,
		"totalCount": 2,
		"totalPages": 1,
		"hasNext": false,
		"hasPrevious": false
	}`

	var resp PaginatedResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("Failed to decode paginated payload: %v", err)
	}

	if resp.TotalCount != 2 || len(resp.Invocations) != 2 {
		t.Fatalf("Expected 2 invocations, got totalCount=%d len=%d", resp.TotalCount, len(resp.Invocations))
	}

	first := resp.Invocations[0]
	if first.ToolName != "pdf_page_counter" {
		t.Errorf("ToolName = %v, want pdf_page_counter", first.ToolName)
	}
	if first.ULID != "01J0000000000000000000TEST" {
		t.Errorf("ULID = %v, want the 26 char identifier", first.ULID)
	}
	if first.Status != "completed" || first.Summary != "3" {
		t.Errorf("Unexpected status/summary: %v/%v", first.Status, first.Summary)
	}
	if first.PageCount != 3 || first.DurationMS != 21 {
		t.Errorf("Unexpected counters: pages=%d duration=%d", first.PageCount, first.DurationMS)
	}

	second := resp.Invocations[1]
	if second.Status != "failed" || second.Error == "" {
		t.Errorf("Second invocation should be a failed run, got %+v", second)
	}

	t.Log("Paginated invocations decoded successfully")
}

// TestInvocationCardResultLinks tests result link rendering from the
// encoded results column
func TestInvocationCardResultLinks(t *testing.T) {
	t.Run("Card with results", func(t *testing.T) {
		card := &InvocationCard{
			Invocation: Invocation{
				ToolName: "pdf_splitter",
				FileName: "twopage.pdf",
				ULID:     "01J0000000000000000000SPLT",
				Status:   "completed",
				Results:  `[{"name":"twopage_page1.pdf","mimeType":"application/pdf","size":1204},{"name":"twopage_page2.pdf","mimeType":"application/pdf","size":1190}]`,
			},
		}
		if ui := card.renderResultLinks(); ui == nil {
			t.Error("renderResultLinks should return non-nil UI")
		}
	})

	t.Run("Card with empty results", func(t *testing.T) {
		card := &InvocationCard{
			Invocation: Invocation{Results: "[]"},
		}
		if ui := card.renderResultLinks(); ui == nil {
			t.Error("Empty results should still return non-nil UI")
		}
	})

	t.Run("Card with malformed results", func(t *testing.T) {
		card := &InvocationCard{
			Invocation: Invocation{Results: "{broken"},
		}
		if ui := card.renderResultLinks(); ui == nil {
			t.Error("Malformed results should still return non-nil UI")
		}
	})
}

// TestFormatDuration tests the duration display helper
func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms       int64
		expected string
	}{
		{0, "0 ms"},
		{480, "480 ms"},
		{1000, "1.0 s"},
		{2500, "2.5 s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.ms); got != tt.expected {
			t.Errorf("formatDuration(%d) = %v, want %v", tt.ms, got, tt.expected)
		}
	}
}

// TestFormatInvokedAt tests the timestamp display helper
func TestFormatInvokedAt(t *testing.T) {
	if got := formatInvokedAt(""); got != "" {
		t.Errorf("formatInvokedAt(\"\") = %v, want empty", got)
	}

	if got := formatInvokedAt("2026-08-20T10:30:00Z"); got != "Aug 20, 2026 at 10:30 AM" {
		t.Errorf("formatInvokedAt() = %v, want Aug 20, 2026 at 10:30 AM", got)
	}

	if got := formatInvokedAt("not-a-time"); got != "not-a-time" {
		t.Errorf("formatInvokedAt() = %v, want passthrough", got)
	}
}

// TestHomePageRenderStates tests that different states produce valid UI
func TestHomePageRenderStates(t *testing.T) {
	t.Run("Loading state returns valid UI", func(t *testing.T) {
		page := &HomePage{loading: true}
		if ui := page.Render(); ui == nil {
			t.Error("Loading state should return non-nil UI")
		}
	})

	t.Run("Empty state returns valid UI", func(t *testing.T) {
		page := &HomePage{}
		if ui := page.Render(); ui == nil {
			t.Error("Empty state should return non-nil UI")
		}
	})

	t.Run("Populated state returns valid UI", func(t *testing.T) {
		page := &HomePage{
			invocations: []Invocation{
				{
					ToolName:  "pdf_page_counter",
					FileName:  "report.pdf",
					ULID:      "01J0000000000000000000TEST",
					Status:    "completed",
					Summary:   "3",
					PageCount: 3,
					InvokedAt: "2026-08-20T10:30:00Z",
				},
			},
			currentPage: 1,
			totalPages:  1,
			totalCount:  1,
		}
		if ui := page.Render(); ui == nil {
			t.Error("Populated state should return non-nil UI")
		}
	})
}
