package tools

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
)

// Thumbnail renders every page, stacks them vertically and scales the
// strip down to a single preview PNG.
type Thumbnail struct {
	Rasterizer   pdfengine.Rasterizer
	DefaultWidth int
}

func (t *Thumbnail) Spec() toolkit.Spec {
	return toolkit.Spec{
		Name:        "pdf_thumbnail",
		Label:       toolkit.I18nString{EnUS: "PDF Thumbnail"},
		Description: toolkit.I18nString{EnUS: "Generate a single PNG preview of a PDF, all pages stacked vertically."},
		Params: []toolkit.Param{
			toolkit.PDFContentParam(toolkit.I18nString{
				EnUS:   "PDF file to generate a preview image for",
				ZhHans: "要生成预览图的 PDF 文件",
			}),
			{
				Name:  "width",
				Label: toolkit.I18nString{EnUS: "Width", ZhHans: "宽度"},
				Description: toolkit.I18nString{
					EnUS:   "Output image width in pixels (default is 1024)",
					ZhHans: "输出图像宽度（像素，默认为1024）",
				},
				Type:     toolkit.ParamTypeNumber,
				Required: false,
				Default:  1024,
			},
		},
	}
}

func (t *Thumbnail) Invoke(ctx context.Context, req *toolkit.Request, emit toolkit.EmitFunc) error {
	if len(req.FileData) == 0 {
		return fmt.Errorf("Invalid PDF content format. Expected File object.")
	}

	width := t.DefaultWidth
	if raw, exists := req.Params["width"]; exists && raw != nil {
		number, ok := req.NumberParam("width")
		if !ok || number < 1 {
			return fmt.Errorf("Invalid width value: %v. Must be a positive number.", raw)
		}
		width = int(number)
	}

	doc, err := pdfengine.Open(req.FileData)
	if err != nil {
		return fmt.Errorf("Invalid PDF file: %v", err)
	}
	if doc.PageCount() == 0 {
		return fmt.Errorf("The PDF file contains no pages.")
	}

	images, err := t.Rasterizer.Render(req.FileData, 2)
	if err != nil {
		return fmt.Errorf("Error generating PDF thumbnail: %v", err)
	}
	if len(images) == 0 {
		return fmt.Errorf("Error generating PDF thumbnail: no pages rendered")
	}

	combined := stackVertically(images)

	// Resize to the requested width, then sharpen to keep text legible
	resized := imaging.Resize(combined, width, 0, imaging.Lanczos)
	sharpened := imaging.Sharpen(resized, 0.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, sharpened); err != nil {
		return fmt.Errorf("Error generating PDF thumbnail: %v", err)
	}

	outputName := fmt.Sprintf("%s_thumb.png", stemFileName(req.FileName))
	err = emit(toolkit.BlobMessage(buf.Bytes(), toolkit.BlobMeta{
		MimeType: "image/png",
		FileName: outputName,
	}))
	if err != nil {
		return err
	}
	return emit(toolkit.TextMessage(fmt.Sprintf("Successfully generated thumbnail from %d pages.", len(images))))
}

// stackVertically combines page images top to bottom into one image.
func stackVertically(images []image.Image) image.Image {
	if len(images) == 1 {
		return images[0]
	}

	totalHeight := 0
	maxWidth := 0
	for _, img := range images {
		bounds := img.Bounds()
		totalHeight += bounds.Dy()
		if bounds.Dx() > maxWidth {
			maxWidth = bounds.Dx()
		}
	}

	combined := image.NewRGBA(image.Rect(0, 0, maxWidth, totalHeight))
	currentY := 0
	for _, img := range images {
		bounds := img.Bounds()
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				combined.Set(x, currentY+y-bounds.Min.Y, img.At(x, y))
			}
		}
		currentY += bounds.Dy()
	}
	return combined
}
