package tools

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
)

// ToPNG renders every page of a PDF to a PNG image. Page blobs lead
// the stream, the summary text closes it.
type ToPNG struct {
	Rasterizer  pdfengine.Rasterizer
	DefaultZoom float64
	MaxZoom     float64
}

func (t *ToPNG) Spec() toolkit.Spec {
	return toolkit.Spec{
		Name:        "pdf_to_png",
		Label:       toolkit.I18nString{EnUS: "PDF to PNG"},
		Description: toolkit.I18nString{EnUS: "Convert each page of a PDF file to a separate PNG image."},
		Params: []toolkit.Param{
			toolkit.PDFContentParam(toolkit.I18nString{
				EnUS:   "PDF file to convert to PNG images",
				ZhHans: "要转换为PNG图片的PDF文件",
			}),
			{
				Name:  "zoom",
				Label: toolkit.I18nString{EnUS: "Zoom Factor", ZhHans: "缩放因子"},
				Description: toolkit.I18nString{
					EnUS:   "Zoom factor for image quality (default is 2)",
					ZhHans: "图像质量的缩放因子（默认为2）",
				},
				Type:     toolkit.ParamTypeNumber,
				Required: false,
				Default:  2,
			},
		},
	}
}

func (t *ToPNG) Invoke(ctx context.Context, req *toolkit.Request, emit toolkit.EmitFunc) error {
	if len(req.FileData) == 0 {
		return fmt.Errorf("Invalid PDF content format. Expected File object.")
	}

	zoom := t.DefaultZoom
	if raw, exists := req.Params["zoom"]; exists && raw != nil {
		number, ok := req.NumberParam("zoom")
		if !ok {
			return fmt.Errorf("Invalid zoom value: %v. Must be a number.", raw)
		}
		zoom = number
	}
	// Clamp rather than reject: zoom is a quality knob, not a contract
	if zoom < 1 {
		zoom = 1
	}
	if t.MaxZoom > 0 && zoom > t.MaxZoom {
		zoom = t.MaxZoom
	}

	doc, err := pdfengine.Open(req.FileData)
	if err != nil {
		return fmt.Errorf("Invalid PDF file: %v", err)
	}
	if doc.PageCount() == 0 {
		return fmt.Errorf("The PDF file contains no pages.")
	}

	images, err := t.Rasterizer.Render(req.FileData, zoom)
	if err != nil {
		return fmt.Errorf("Error converting PDF to PNG: %v", err)
	}

	base := stemFileName(req.FileName)
	for i, img := range images {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("Error converting PDF to PNG: %v", err)
		}
		err := emit(toolkit.BlobMessage(buf.Bytes(), toolkit.BlobMeta{
			MimeType: "image/png",
			FileName: fmt.Sprintf("%s_page%d.png", base, i+1),
		}))
		if err != nil {
			return err
		}
	}

	return emit(toolkit.TextMessage(fmt.Sprintf("Successfully converted %d pages to PNG images.", len(images))))
}
