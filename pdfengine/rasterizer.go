package pdfengine

import (
	"fmt"
	"image"
)

// Rasterizer defines the interface for PDF to image conversion
type Rasterizer interface {
	// Render converts all pages of a PDF to images at the given zoom
	// factor, where zoom 1.0 corresponds to 72 DPI.
	// Returns a slice of images, one per page, in page order.
	Render(pdfData []byte, zoom float64) ([]image.Image, error)

	// Close cleans up any resources used by the rasterizer
	Close() error
}

// NewRasterizer creates a rasterizer by backend name: "pdfium" (pure
// Go via WebAssembly, the default), "fitz" (CGo and MuPDF) or "remote"
// (the render-service over HTTP).
func NewRasterizer(backend, serviceURL string) (Rasterizer, error) {
	switch backend {
	case "", "pdfium":
		return NewPDFiumRasterizer()
	case "fitz":
		return NewFitzRasterizer()
	case "remote":
		if serviceURL == "" {
			return nil, fmt.Errorf("remote rasterizer requires a render service URL")
		}
		return NewRemoteRasterizer(serviceURL), nil
	default:
		return nil, fmt.Errorf("unknown rasterizer backend: %s", backend)
	}
}

// dpiForZoom maps a zoom factor onto the DPI scale the render backends
// speak. Zoom 1.0 is the PDF native 72 DPI.
func dpiForZoom(zoom float64) float64 {
	if zoom <= 0 {
		zoom = 1
	}
	return 72 * zoom
}
