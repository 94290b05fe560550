package pdfengine

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzRasterizer renders pages using go-fitz (requires CGo and MuPDF)
type FitzRasterizer struct {
}

// NewFitzRasterizer creates a new Fitz-based rasterizer
func NewFitzRasterizer() (*FitzRasterizer, error) {
	return &FitzRasterizer{}, nil
}

// Render converts all pages of a PDF to images using go-fitz
func (r *FitzRasterizer) Render(pdfData []byte, zoom float64) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	dpi := dpiForZoom(zoom)

	var images []image.Image
	for pageNum := 0; pageNum < numPages; pageNum++ {
		img, err := doc.ImageDPI(pageNum, dpi)
		if err != nil {
			return nil, fmt.Errorf("unable to render page %d: %w", pageNum, err)
		}
		images = append(images, img)
	}

	return images, nil
}

// Close cleans up resources (no-op, the document is closed per render)
func (r *FitzRasterizer) Close() error {
	return nil
}
