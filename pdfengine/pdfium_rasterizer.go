package pdfengine

import (
	"fmt"
	"image"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PDFiumRasterizer renders pages using go-pdfium with WebAssembly (pure Go, no CGo)
type PDFiumRasterizer struct {
	pool     pdfium.Pool
	instance pdfium.Pdfium
}

// NewPDFiumRasterizer creates a new PDFium-based rasterizer using WebAssembly
func NewPDFiumRasterizer() (*PDFiumRasterizer, error) {
	// Single worker is enough, invocations render one document at a time
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	return &PDFiumRasterizer{
		pool:     pool,
		instance: instance,
	}, nil
}

// Render converts all pages of a PDF to images using go-pdfium WebAssembly
func (r *PDFiumRasterizer) Render(pdfData []byte, zoom float64) ([]image.Image, error) {
	doc, err := r.instance.OpenDocument(&requests.OpenDocument{
		File: &pdfData,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc.Document,
	})

	pageCountResp, err := r.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get page count: %w", err)
	}

	numPages := pageCountResp.PageCount
	dpi := int(dpiForZoom(zoom))
	images := make([]image.Image, 0, numPages)

	for pageIndex := 0; pageIndex < numPages; pageIndex++ {
		pageRender, err := r.instance.RenderPageInDPI(&requests.RenderPageInDPI{
			DPI: dpi,
			Page: requests.Page{
				ByIndex: &requests.PageByIndex{
					Document: doc.Document,
					Index:    pageIndex,
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("unable to render page %d: %w", pageIndex, err)
		}

		images = append(images, pageRender.Result.Image)

		// Release WebAssembly resources for this page
		pageRender.Cleanup()
	}

	return images, nil
}

// Close cleans up resources used by the PDFium rasterizer
func (r *PDFiumRasterizer) Close() error {
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	r.instance = nil
	return nil
}
