package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gen2brain/go-fitz"
)

// RenderResponse carries one base64 encoded PNG per rendered page, in
// page order. Error is set instead when rendering failed.
type RenderResponse struct {
	Images []string `json:"images"`
	Error  string   `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

const maxZoom = 8.0

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8002"
	}

	log.Printf("Starting render service on port %s", port)

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/render", renderHandler)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func renderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(32 << 20) // 32MB max
	if err != nil {
		sendErrorResponse(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	// Get the file from the form
	file, header, err := r.FormFile("pdf")
	if err != nil {
		sendErrorResponse(w, "No PDF file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Zoom 1.0 is the PDF native 72 DPI
	zoom := 2.0
	if zoomField := r.FormValue("zoom"); zoomField != "" {
		zoom, err = strconv.ParseFloat(zoomField, 64)
		if err != nil {
			sendErrorResponse(w, "Invalid zoom value", http.StatusBadRequest)
			return
		}
	}
	if zoom < 1 {
		zoom = 1
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}

	// Optional single page (1-indexed); zero means all pages
	page := 0
	if pageField := r.FormValue("page"); pageField != "" {
		page, err = strconv.Atoi(pageField)
		if err != nil || page < 1 {
			sendErrorResponse(w, "Invalid page value", http.StatusBadRequest)
			return
		}
	}

	log.Printf("Rendering file: %s (zoom=%g, page=%d)", header.Filename, zoom, page)

	// Read file content
	pdfData, err := io.ReadAll(file)
	if err != nil {
		sendErrorResponse(w, "Failed to read PDF file", http.StatusInternalServerError)
		return
	}

	images, err := renderPages(pdfData, zoom, page)
	if err != nil {
		log.Printf("Render error: %v", err)
		sendErrorResponse(w, fmt.Sprintf("Rendering failed: %v", err), http.StatusInternalServerError)
		return
	}

	response := RenderResponse{
		Images: images,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// renderPages rasterizes the requested pages and returns them as base64
// encoded PNGs. page 0 renders the whole document.
func renderPages(pdfData []byte, zoom float64, page int) ([]string, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	first, last := 0, numPages-1
	if page > 0 {
		if page > numPages {
			return nil, fmt.Errorf("page %d out of range, PDF has %d pages", page, numPages)
		}
		first, last = page-1, page-1
	}

	dpi := 72 * zoom

	var images []string
	for pageNum := first; pageNum <= last; pageNum++ {
		img, err := doc.ImageDPI(pageNum, dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", pageNum+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode PNG for page %d: %w", pageNum+1, err)
		}
		images = append(images, base64.StdEncoding.EncodeToString(buf.Bytes()))
	}

	return images, nil
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{
		"error": message,
	}
	json.NewEncoder(w).Encode(response)
}
