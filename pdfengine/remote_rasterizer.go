package pdfengine

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// RemoteRasterizer delegates rendering to the render-service over HTTP,
// for deployments that keep the WebAssembly runtime out of the main
// process.
type RemoteRasterizer struct {
	ServiceURL string
	HTTPClient *http.Client
}

// NewRemoteRasterizer creates a rasterizer backed by the render-service
// at the given base URL.
func NewRemoteRasterizer(serviceURL string) *RemoteRasterizer {
	return &RemoteRasterizer{
		ServiceURL: serviceURL,
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// renderResponse represents the response from the render-service
type renderResponse struct {
	Images []string `json:"images"` // base64 encoded PNGs, one per page
	Error  string   `json:"error,omitempty"`
}

// Render sends the PDF to the render-service and decodes the returned
// page images.
func (r *RemoteRasterizer) Render(pdfData []byte, zoom float64) ([]image.Image, error) {
	// Create multipart form data
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("pdf", "document.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = part.Write(pdfData); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}
	if err = writer.WriteField("zoom", strconv.FormatFloat(zoom, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("failed to write zoom field: %w", err)
	}
	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	// Make HTTP request
	url := fmt.Sprintf("%s/render", r.ServiceURL)
	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call render service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("render service returned error status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	// Parse response
	var renderResp renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&renderResp); err != nil {
		return nil, fmt.Errorf("failed to decode render response: %w", err)
	}
	if renderResp.Error != "" {
		return nil, fmt.Errorf("render service error: %s", renderResp.Error)
	}

	images := make([]image.Image, 0, len(renderResp.Images))
	for i, encoded := range renderResp.Images {
		imageData, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 image %d: %w", i, err)
		}
		img, err := png.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("failed to decode PNG for page %d: %w", i+1, err)
		}
		images = append(images, img)
	}

	return images, nil
}

// Close is a no-op, the HTTP client holds no long-lived resources.
func (r *RemoteRasterizer) Close() error {
	return nil
}
