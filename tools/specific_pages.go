package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/drummonds/pdftoolbox/pagespec"
	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
)

// SpecificPagesExtractor extracts a comma-separated list of pages into
// one PDF. Unlike MultiPagesExtractor it takes plain numbers only and
// de-duplicates while keeping first-seen order.
type SpecificPagesExtractor struct{}

func (t *SpecificPagesExtractor) Spec() toolkit.Spec {
	return toolkit.Spec{
		Name:        "pdf_specific_pages_extractor",
		Label:       toolkit.I18nString{EnUS: "PDF Specific Pages Extractor"},
		Description: toolkit.I18nString{EnUS: "Extract specific pages from a PDF file in the order given, duplicates removed."},
		Params: []toolkit.Param{
			toolkit.PDFContentParam(toolkit.I18nString{
				EnUS:   "PDF file content",
				ZhHans: "PDF 文件内容",
			}),
			{
				Name:  "page_numbers",
				Label: toolkit.I18nString{EnUS: "Page Numbers", ZhHans: "页码列表"},
				Description: toolkit.I18nString{
					EnUS:   "Comma-separated list of page numbers to extract (e.g., '1,3,5,2')",
					ZhHans: "要提取的页码列表，用逗号分隔（例如：'1,3,5,2'）",
				},
				Type:     toolkit.ParamTypeString,
				Required: true,
			},
		},
	}
}

func (t *SpecificPagesExtractor) Invoke(ctx context.Context, req *toolkit.Request, emit toolkit.EmitFunc) error {
	if len(req.FileData) == 0 {
		return fmt.Errorf("PDF content must be a File object")
	}

	pageNumbersStr, _ := req.StringParam("page_numbers")
	if pageNumbersStr == "" {
		return fmt.Errorf("Missing required parameter: page_numbers")
	}

	doc, err := pdfengine.Open(req.FileData)
	if err != nil {
		return fmt.Errorf("Invalid PDF file: %v", err)
	}

	indices, err := pagespec.ParseList(pageNumbersStr, doc.PageCount(), pagespec.RejectEmpty)
	if err != nil {
		return err
	}
	indices = pagespec.Dedupe(indices)

	extracted, err := doc.ExtractPages(indices)
	if err != nil {
		return fmt.Errorf("Error extracting pages from PDF: %v", err)
	}

	pages := make([]string, len(indices))
	for i, index := range indices {
		pages[i] = strconv.Itoa(index + 1)
	}
	outputName := fmt.Sprintf("%s_pages_%s.pdf", baseFileName(req.FileName), strings.Join(pages, "_"))

	if err := emit(toolkit.TextMessage(fmt.Sprintf("Successfully extracted pages %s from PDF", strings.Join(pages, ", ")))); err != nil {
		return err
	}
	return emit(toolkit.BlobMessage(extracted, toolkit.BlobMeta{
		MimeType: "application/pdf",
		FileName: outputName,
	}))
}
