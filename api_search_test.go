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

// seedInvocations writes a fixed set of recorded runs straight into the
// repository so the search surface has something to find
func seedInvocations(t *testing.T, db database.Repository) {
	t.Helper()

	seeds := []struct {
		tool     string
		file     string
		status   string
		summary  string
		errorMsg string
		pages    int
	}{
		{"pdf_page_counter", "Invoice_2024_Q1.pdf", database.InvocationStatusCompleted, "12", "", 12},
		{"pdf_splitter", "Invoice_2024_Q2.pdf", database.InvocationStatusCompleted, "Split PDF into 8 pages", "", 8},
		{"pdf_page_counter", "Contract_Agreement.pdf", database.InvocationStatusCompleted, "3", "", 3},
		{"pdf_text_extractor", "Meeting_Notes_January.pdf", database.InvocationStatusCompleted, "Extracted text from 2 pages", "", 2},
		{"pdf_single_page_extractor", "Tax_Document_2023.pdf", database.InvocationStatusFailed, "", "Invalid page number. The PDF has 4 pages (1-4). You entered: 9.", 4},
		{"pdf_thumbnail", "Receipt_Store_Purchase.pdf", database.InvocationStatusCompleted, "Generated thumbnail", "", 1},
	}

	for i, seed := range seeds {
		ulid, err := database.CalculateUUID(time.Now().Add(time.Duration(i) * time.Millisecond))
		if err != nil {
			t.Fatalf("Failed to generate ULID: %v", err)
		}

		inv := &database.Invocation{
			ToolName:   seed.tool,
			FileName:   seed.file,
			FileHash:   fmt.Sprintf("hash_%d", i),
			FileSize:   int64(1024 * (i + 1)),
			ULID:       ulid,
			Status:     seed.status,
			Summary:    seed.summary,
			Error:      seed.errorMsg,
			Results:    "[]",
			PageCount:  seed.pages,
			DurationMS: int64(40 + i),
			InvokedAt:  time.Now(),
		}

		if err := db.SaveInvocation(inv); err != nil {
			t.Fatalf("Failed to save test invocation %s: %v", seed.file, err)
		}
	}
}

// TestSearchEndpoint provides comprehensive tests for the invocation
// search API endpoint
func TestSearchEndpoint(t *testing.T) {
	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	seedInvocations(t, serverHandler.DB)

	t.Run("Search by file name - single word", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term=invoice", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		invocations, ok := response["invocations"].([]interface{})
		if !ok {
			t.Fatalf("Invocations field is not an array: %T", response["invocations"])
		}
		if len(invocations) != 2 {
			t.Errorf("Expected 2 invoice matches, got %d", len(invocations))
		}
		if response["count"] != float64(len(invocations)) {
			t.Errorf("Count %v does not match listed invocations %d", response["count"], len(invocations))
		}
	})

	t.Run("Search by tool name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term=pdf_page_counter", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		invocations := response["invocations"].([]interface{})
		if len(invocations) != 2 {
			t.Errorf("Expected 2 page counter runs, got %d", len(invocations))
		}

		for _, entry := range invocations {
			inv := entry.(map[string]interface{})
			if inv["ToolName"] != "pdf_page_counter" {
				t.Errorf("Match has wrong tool: %v", inv["ToolName"])
			}
		}
	})

	t.Run("Search with no results", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term=zebra", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", rec.Code)
		}
	})

	t.Run("Search with empty term", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term=", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected status 404 for empty term, got %d", rec.Code)
		}
	})

	t.Run("Search without term parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/invocations/search", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected status 404 without term, got %d", rec.Code)
		}
	})

	t.Run("Search with URL encoded term", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term=Tax_Document", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		invocations := response["invocations"].([]interface{})
		if len(invocations) != 1 {
			t.Errorf("Expected 1 tax document match, got %d", len(invocations))
		}
	})

	t.Run("Search with special characters", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term=%40%23%24", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		// No matches expected, must not blow up
		if rec.Code != http.StatusNoContent && rec.Code != http.StatusOK {
			t.Errorf("Expected status 204 or 200, got %d", rec.Code)
		}
	})

	t.Run("Search results contain required fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term=contract", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		invocations := response["invocations"].([]interface{})
		if len(invocations) == 0 {
			t.Fatal("Expected at least one contract match")
		}

		first := invocations[0].(map[string]interface{})
		requiredFields := []string{"ToolName", "FileName", "ULID", "Status", "PageCount", "DurationMS", "InvokedAt"}
		for _, field := range requiredFields {
			if _, ok := first[field]; !ok {
				t.Errorf("Search result missing field: %s", field)
			}
		}
	})

	t.Run("Search case insensitivity", func(t *testing.T) {
		variants := []string{"INVOICE", "invoice", "Invoice", "iNvOiCe"}

		var counts []int
		for _, term := range variants {
			req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term="+term, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("Term %q returned status %d", term, rec.Code)
				continue
			}

			var response map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
				t.Errorf("Term %q failed to parse: %v", term, err)
				continue
			}
			counts = append(counts, len(response["invocations"].([]interface{})))
		}

		for i := 1; i < len(counts); i++ {
			if counts[i] != counts[0] {
				t.Errorf("Case variant returned %d matches, first returned %d", counts[i], counts[0])
			}
		}
	})

	t.Run("Search returns proper Content-Type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term=invoice", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		contentType := rec.Header().Get("Content-Type")
		if !contains(contentType, "application/json") {
			t.Errorf("Expected Content-Type to contain 'application/json', got '%s'", contentType)
		}
	})
}

// TestToolHistoryEndpoint tests the per tool run history
func TestToolHistoryEndpoint(t *testing.T) {
	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	seedInvocations(t, serverHandler.DB)

	t.Run("History lists only the named tool", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tools/pdf_page_counter/history", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var history []map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
			t.Fatalf("Failed to parse history: %v", err)
		}

		if len(history) != 2 {
			t.Errorf("Expected 2 recorded runs, got %d", len(history))
		}
		for _, inv := range history {
			if inv["ToolName"] != "pdf_page_counter" {
				t.Errorf("History entry has wrong tool: %v", inv["ToolName"])
			}
		}
	})

	t.Run("History of a tool without runs is an empty array", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tools/pdf_to_png/history", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}

		var history []map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
			t.Fatalf("Failed to parse history: %v\nBody: %s", err, rec.Body.String())
		}
		if len(history) != 0 {
			t.Errorf("Expected empty history, got %d entries", len(history))
		}
	})

	t.Run("History of an unknown tool", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tools/pdf_unicorn/history", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", rec.Code)
		}
	})
}

// TestSearchPerformance measures the search endpoint with a populated
// invocation log
func TestSearchPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	// Populate the log with enough rows to make the LIKE scan honest
	for i := 0; i < 50; i++ {
		ulid, _ := database.CalculateUUID(time.Now().Add(time.Duration(i) * time.Millisecond))
		inv := &database.Invocation{
			ToolName:   "pdf_page_counter",
			FileName:   fmt.Sprintf("report_%d.pdf", i),
			FileHash:   fmt.Sprintf("hash_%d", i),
			FileSize:   2048,
			ULID:       ulid,
			Status:     database.InvocationStatusCompleted,
			Summary:    "5",
			Results:    "[]",
			PageCount:  5,
			DurationMS: 30,
			InvokedAt:  time.Now(),
		}
		if err := serverHandler.DB.SaveInvocation(inv); err != nil {
			t.Fatalf("Failed to seed invocation %d: %v", i, err)
		}
	}

	t.Run("Search performance with 50 invocations", func(t *testing.T) {
		iterations := 50
		start := time.Now()

		for i := 0; i < iterations; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term=report", nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("Request %d failed with status %d", i, rec.Code)
			}
		}

		elapsed := time.Since(start)
		avgTime := elapsed / time.Duration(iterations)

		t.Logf("Completed %d search requests in %v (avg: %v per request)", iterations, elapsed, avgTime)

		if avgTime > 100*time.Millisecond {
			t.Logf("Warning: Average search time (%v) higher than expected", avgTime)
		}
	})
}

// TestSearchConcurrency tests concurrent search requests
func TestSearchConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	seedInvocations(t, serverHandler.DB)

	t.Run("Concurrent search requests", func(t *testing.T) {
		concurrency := 20
		done := make(chan bool, concurrency)
		errors := make(chan error, concurrency)

		terms := []string{"invoice", "contract", "pdf_splitter", "notes"}

		for i := 0; i < concurrency; i++ {
			go func(id int) {
				term := terms[id%len(terms)]
				req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term="+term, nil)
				rec := httptest.NewRecorder()
				e.ServeHTTP(rec, req)

				if rec.Code != http.StatusOK && rec.Code != http.StatusNoContent {
					errors <- fmt.Errorf("request %d (%s) failed with status %d", id, term, rec.Code)
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
			t.Logf("✓ Successfully handled %d concurrent search requests", concurrency)
		}
	})
}

// TestSearchResultFormat pins down the shape of a search match
func TestSearchResultFormat(t *testing.T) {
	e, serverHandler, cleanup := setupTestServer(t)
	defer cleanup()

	seedInvocations(t, serverHandler.DB)

	t.Run("Failed runs carry their error in the search results", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/invocations/search?term=Tax_Document", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		invocations := response["invocations"].([]interface{})
		if len(invocations) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(invocations))
		}

		inv := invocations[0].(map[string]interface{})
		if inv["Status"] != database.InvocationStatusFailed {
			t.Errorf("Expected failed status, got %v", inv["Status"])
		}
		errMsg, _ := inv["Error"].(string)
		if errMsg == "" {
			t.Error("Failed run has no error message in the search result")
		}

		// The ULID must round trip as its 26 character string form
		ulidStr, _ := inv["ULID"].(string)
		if len(ulidStr) != 26 {
			t.Errorf("ULID serialized as %q, expected 26 character string", ulidStr)
		}
	})
}
