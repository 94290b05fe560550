package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	database "github.com/drummonds/pdftoolbox/database"
)

// TestStatsAPI tests the usage statistics API endpoints
func TestStatsAPI(t *testing.T) {
	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	// Seed recorded runs with known per tool counts
	testRuns := []struct {
		tool       string
		file       string
		succeeded  bool
		durationMS int64
	}{
		{"pdf_page_counter", "invoice.pdf", true, 40},
		{"pdf_page_counter", "contract.pdf", true, 35},
		{"pdf_page_counter", "report.pdf", true, 52},
		{"pdf_page_counter", "broken.pdf", false, 12},
		{"pdf_splitter", "invoice.pdf", true, 210},
		{"pdf_splitter", "report.pdf", true, 198},
		{"pdf_text_extractor", "notes.pdf", true, 88},
	}

	for i, run := range testRuns {
		ulid, _ := database.CalculateUUID(time.Now().Add(time.Duration(i) * time.Millisecond))

		status := database.InvocationStatusCompleted
		errorMsg := ""
		if !run.succeeded {
			status = database.InvocationStatusFailed
			errorMsg = "Invalid PDF file"
		}

		inv := &database.Invocation{
			ToolName:   run.tool,
			FileName:   run.file,
			FileHash:   fmt.Sprintf("hash_%d", i),
			FileSize:   4096,
			ULID:       ulid,
			Status:     status,
			Error:      errorMsg,
			Results:    "[]",
			PageCount:  3,
			DurationMS: run.durationMS,
			InvokedAt:  time.Now(),
		}
		if err := serverHandler.DB.SaveInvocation(inv); err != nil {
			t.Fatalf("Failed to save invocation: %v", err)
		}
	}

	// Rebuild the counters from the seeded log before testing
	if err := serverHandler.DB.RecalculateToolUsage(); err != nil {
		t.Fatalf("Failed to recalculate tool usage: %v", err)
	}

	t.Run("GET /api/stats/tools - default", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/tools", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v\nBody: %s", err, rec.Body.String())
		}

		// Verify response structure
		if _, ok := response["tools"]; !ok {
			t.Error("Response missing 'tools' field")
		}
		if _, ok := response["metadata"]; !ok {
			t.Error("Response missing 'metadata' field")
		}
		if _, ok := response["count"]; !ok {
			t.Error("Response missing 'count' field")
		}

		// Verify tools array
		toolEntries, ok := response["tools"].([]interface{})
		if !ok {
			t.Fatalf("Tools is not an array: %T", response["tools"])
		}

		if len(toolEntries) != 3 {
			t.Errorf("Expected 3 tracked tools, got %d", len(toolEntries))
		}

		// Verify first entry structure
		if len(toolEntries) > 0 {
			first, ok := toolEntries[0].(map[string]interface{})
			if !ok {
				t.Fatalf("Tool entry is not an object: %T", toolEntries[0])
			}

			if _, ok := first["toolName"]; !ok {
				t.Error("Tool entry missing 'toolName' field")
			}
			if _, ok := first["invocations"]; !ok {
				t.Error("Tool entry missing 'invocations' field")
			}
			if _, ok := first["failures"]; !ok {
				t.Error("Tool entry missing 'failures' field")
			}
			if _, ok := first["totalDurationMs"]; !ok {
				t.Error("Tool entry missing 'totalDurationMs' field")
			}

			t.Logf("First tool: %s (%0.f runs)", first["toolName"], first["invocations"])
		}
	})

	t.Run("GET /api/stats/tools - with limit parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/tools?limit=2", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		toolEntries := response["tools"].([]interface{})
		if len(toolEntries) > 2 {
			t.Errorf("Expected at most 2 tools, got %d", len(toolEntries))
		}

		t.Logf("Requested top 2 tools, got %d", len(toolEntries))
	})

	t.Run("GET /api/stats/tools - invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/tools?limit=invalid", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		// Should still return 200 with the full list
		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200 (default limit), got %d", rec.Code)
		}
	})

	t.Run("GET /api/stats/tools - metadata structure", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/tools", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		metadata, ok := response["metadata"].(map[string]interface{})
		if !ok {
			t.Fatalf("Metadata is not an object: %T", response["metadata"])
		}

		// Check metadata fields
		expectedFields := []string{"lastRecalculation", "totalRunsProcessed", "totalToolsTracked", "version"}
		for _, field := range expectedFields {
			if _, ok := metadata[field]; !ok {
				t.Errorf("Metadata missing field: %s", field)
			}
		}

		// The recalculation above processed all seven seeded runs
		if metadata["totalRunsProcessed"] != float64(len(testRuns)) {
			t.Errorf("Expected %d runs processed, got %v", len(testRuns), metadata["totalRunsProcessed"])
		}
		if metadata["totalToolsTracked"] != float64(3) {
			t.Errorf("Expected 3 tools tracked, got %v", metadata["totalToolsTracked"])
		}

		t.Logf("Metadata: runs=%v, tools=%v, version=%v",
			metadata["totalRunsProcessed"],
			metadata["totalToolsTracked"],
			metadata["version"])
	})

	t.Run("GET /api/stats/tools - counter validation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/tools", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		toolEntries := response["tools"].([]interface{})

		// Index the counters by tool
		counters := make(map[string]map[string]float64)
		for _, entry := range toolEntries {
			tool := entry.(map[string]interface{})
			name := tool["toolName"].(string)
			counters[name] = map[string]float64{
				"invocations":     tool["invocations"].(float64),
				"failures":        tool["failures"].(float64),
				"totalDurationMs": tool["totalDurationMs"].(float64),
			}
		}

		// pdf_page_counter ran 4 times, once failing
		if c, ok := counters["pdf_page_counter"]; ok {
			if c["invocations"] != 4 {
				t.Errorf("Expected 4 page counter runs, got %.0f", c["invocations"])
			}
			if c["failures"] != 1 {
				t.Errorf("Expected 1 page counter failure, got %.0f", c["failures"])
			}
			if c["totalDurationMs"] != 40+35+52+12 {
				t.Errorf("Expected summed duration 139, got %.0f", c["totalDurationMs"])
			}
		} else {
			t.Error("Counters missing pdf_page_counter")
		}

		// pdf_splitter ran twice, clean
		if c, ok := counters["pdf_splitter"]; ok {
			if c["invocations"] != 2 {
				t.Errorf("Expected 2 splitter runs, got %.0f", c["invocations"])
			}
			if c["failures"] != 0 {
				t.Errorf("Expected no splitter failures, got %.0f", c["failures"])
			}
		} else {
			t.Error("Counters missing pdf_splitter")
		}

		// Tools that never ran must not appear
		if _, ok := counters["pdf_thumbnail"]; ok {
			t.Error("pdf_thumbnail never ran but has counters")
		}
	})

	t.Run("GET /api/stats/tools - sorted by invocation count", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/tools", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		toolEntries := response["tools"].([]interface{})

		// Verify entries are sorted by invocation count (descending)
		var lastCount float64 = 999999
		for i, entry := range toolEntries {
			tool := entry.(map[string]interface{})
			count := tool["invocations"].(float64)

			if count > lastCount {
				t.Errorf("Tools not sorted by invocations at index %d: %.0f > %.0f", i, count, lastCount)
			}

			lastCount = count
		}

		t.Log("✓ Tools are sorted by invocation count (descending)")
	})

	t.Run("POST /api/stats/recalculate", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/stats/recalculate", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		// Check response structure
		if _, ok := response["message"]; !ok {
			t.Error("Response missing 'message' field")
		}
		jobID, ok := response["jobId"].(string)
		if !ok || jobID == "" {
			t.Fatalf("Response missing 'jobId' field: %s", rec.Body.String())
		}

		t.Logf("Recalculation response: %v", response["message"])

		// Poll the tracked job until the rebuild lands
		deadline := time.Now().Add(10 * time.Second)
		for {
			req2 := httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID, nil)
			rec2 := httptest.NewRecorder()
			e.ServeHTTP(rec2, req2)

			if rec2.Code != http.StatusOK {
				t.Fatalf("Job lookup returned status %d", rec2.Code)
			}

			var job map[string]interface{}
			if err := json.Unmarshal(rec2.Body.Bytes(), &job); err != nil {
				t.Fatalf("Failed to parse job: %v", err)
			}

			status, _ := job["status"].(string)
			if status == "completed" {
				t.Logf("Recalculation job finished: %v", job["result"])
				break
			}
			if status == "failed" {
				t.Fatalf("Recalculation job failed: %v", job["error"])
			}
			if time.Now().After(deadline) {
				t.Fatalf("Recalculation job still %q after deadline", status)
			}
			time.Sleep(100 * time.Millisecond)
		}

		// Verify we can still query after recalculation
		req3 := httptest.NewRequest(http.MethodGet, "/api/stats/tools", nil)
		rec3 := httptest.NewRecorder()
		e.ServeHTTP(rec3, req3)

		if rec3.Code != http.StatusOK {
			t.Errorf("Expected status 200 after recalculation, got %d", rec3.Code)
		}
	})

	t.Run("GET /api/stats/tools - Content-Type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/tools", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		contentType := rec.Header().Get("Content-Type")
		if !contains(contentType, "application/json") {
			t.Errorf("Expected Content-Type to contain 'application/json', got '%s'", contentType)
		}
	})
}

// TestStatsAPIEdgeCases tests edge cases and error conditions
func TestStatsAPIEdgeCases(t *testing.T) {
	e, _, cleanup := setupTestServer(t)
	defer cleanup()

	t.Run("GET /api/stats/tools - empty database", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/tools", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		// Should return 200 even with no data
		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		// Verify tools is an empty array, not null
		if response["tools"] == nil {
			t.Error("Expected tools to be an empty array [], got null")
			t.Logf("Full response: %s", rec.Body.String())
		} else {
			toolEntries := response["tools"].([]interface{})
			if len(toolEntries) != 0 {
				t.Errorf("Expected 0 tools in empty database, got %d", len(toolEntries))
			}
		}

		// Verify metadata is not null
		if response["metadata"] == nil {
			t.Error("Expected metadata to be an object, got null")
		}

		// Verify count is 0
		if response["count"] != float64(0) {
			t.Errorf("Expected count to be 0, got %v", response["count"])
		}
	})

	t.Run("GET /api/stats/tools - zero limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/tools?limit=0", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}

		// Should use the full list
		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		t.Logf("Zero limit response count: %v", response["count"])
	})

	t.Run("GET /api/stats/tools - negative limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/tools?limit=-10", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}

		// Should use the full list
		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		t.Log("Negative limit handled gracefully")
	})

	t.Run("POST /api/stats/recalculate - wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats/recalculate", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		// Should return method not allowed or 404
		if rec.Code != http.StatusMethodNotAllowed && rec.Code != http.StatusNotFound {
			t.Logf("GET on POST endpoint returned %d (may be handled by catch-all)", rec.Code)
		}
	})
}

// TestStatsAPIConcurrency tests concurrent API requests
func TestStatsAPIConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	e, _, cleanup := setupTestServer(t)
	defer cleanup()

	t.Run("Concurrent stats requests", func(t *testing.T) {
		concurrency := 20
		done := make(chan bool, concurrency)
		errors := make(chan error, concurrency)

		for i := 0; i < concurrency; i++ {
			go func(id int) {
				req := httptest.NewRequest(http.MethodGet, "/api/stats/tools", nil)
				rec := httptest.NewRecorder()
				e.ServeHTTP(rec, req)

				if rec.Code != http.StatusOK {
					errors <- fmt.Errorf("request %d failed with status %d", id, rec.Code)
				}
				done <- true
			}(i)
		}

		// Wait for all requests
		for i := 0; i < concurrency; i++ {
			<-done
		}

		close(errors)
		errorCount := 0
		for err := range errors {
			t.Error(err)
			errorCount++
		}

		if errorCount == 0 {
			t.Logf("✓ Successfully handled %d concurrent requests", concurrency)
		}
	})
}

// TestStatsAPIPerformance tests API performance
func TestStatsAPIPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	// Create some recorded runs
	for i := 0; i < 50; i++ {
		ulid, _ := database.CalculateUUID(time.Now().Add(time.Duration(i) * time.Millisecond))

		inv := &database.Invocation{
			ToolName:   fmt.Sprintf("pdf_tool_%d", i%8),
			FileName:   fmt.Sprintf("doc_%d.pdf", i),
			FileHash:   fmt.Sprintf("hash_%d", i),
			FileSize:   2048,
			ULID:       ulid,
			Status:     database.InvocationStatusCompleted,
			Results:    "[]",
			PageCount:  2,
			DurationMS: int64(20 + i),
			InvokedAt:  time.Now(),
		}
		serverHandler.DB.SaveInvocation(inv)
	}

	serverHandler.DB.RecalculateToolUsage()

	t.Run("Stats API performance", func(t *testing.T) {
		iterations := 50
		start := time.Now()

		for i := 0; i < iterations; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/stats/tools", nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("Request %d failed with status %d", i, rec.Code)
			}
		}

		elapsed := time.Since(start)
		avgTime := elapsed / time.Duration(iterations)

		t.Logf("Completed %d requests in %v (avg: %v per request)", iterations, elapsed, avgTime)

		if avgTime > 100*time.Millisecond {
			t.Logf("Warning: Average response time (%v) higher than expected", avgTime)
		} else {
			t.Logf("✓ Performance: %v per request", avgTime)
		}
	})
}
