package tools

import (
	"context"
	"fmt"

	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
)

// SinglePageExtractor extracts one 1-indexed page into a new PDF.
type SinglePageExtractor struct{}

func (t *SinglePageExtractor) Spec() toolkit.Spec {
	return toolkit.Spec{
		Name:        "pdf_single_page_extractor",
		Label:       toolkit.I18nString{EnUS: "PDF Single Page Extractor"},
		Description: toolkit.I18nString{EnUS: "Extract a single page from a PDF file and return it as a new PDF."},
		Params: []toolkit.Param{
			toolkit.PDFContentParam(toolkit.I18nString{
				EnUS:   "PDF file content",
				ZhHans: "PDF 文件内容",
			}),
			{
				Name:  "page_number",
				Label: toolkit.I18nString{EnUS: "Page Number", ZhHans: "页码"},
				Description: toolkit.I18nString{
					EnUS:   "Page number to extract (starting from 1)",
					ZhHans: "要提取的页码（从1开始）",
				},
				Type:     toolkit.ParamTypeNumber,
				Required: true,
				Default:  1,
			},
		},
	}
}

func (t *SinglePageExtractor) Invoke(ctx context.Context, req *toolkit.Request, emit toolkit.EmitFunc) error {
	if len(req.FileData) == 0 {
		return fmt.Errorf("PDF content must be a File object")
	}

	raw, ok := req.Params["page_number"]
	if !ok || raw == nil {
		return fmt.Errorf("Missing required parameter: page_number")
	}
	number, ok := req.NumberParam("page_number")
	if !ok {
		return fmt.Errorf("Invalid page number format: %v. Must be an integer.", raw)
	}
	userPage := int(number)
	if userPage < 1 {
		return fmt.Errorf("Page number must be at least 1. You entered: %d", userPage)
	}

	doc, err := pdfengine.Open(req.FileData)
	if err != nil {
		return fmt.Errorf("Invalid PDF file: %v", err)
	}
	totalPages := doc.PageCount()
	if userPage > totalPages {
		return fmt.Errorf("Invalid page number. The PDF has %d pages (1-%d). You entered: %d.", totalPages, totalPages, userPage)
	}

	pageData, err := doc.ExtractPage(userPage - 1)
	if err != nil {
		return fmt.Errorf("Error extracting page from PDF: %v", err)
	}

	outputName := fmt.Sprintf("%s_page%d.pdf", baseFileName(req.FileName), userPage)

	if err := emit(toolkit.TextMessage(fmt.Sprintf("Successfully extracted page %d from PDF", userPage))); err != nil {
		return err
	}
	return emit(toolkit.BlobMessage(pageData, toolkit.BlobMeta{
		MimeType: "application/pdf",
		FileName: outputName,
	}))
}
