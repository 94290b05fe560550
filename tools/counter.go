package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
)

// PageCounter counts the pages of a PDF. It emits the bare count as
// text, then a JSON map of zero-padded page keys so downstream steps
// can iterate pages by name.
type PageCounter struct{}

func (t *PageCounter) Spec() toolkit.Spec {
	return toolkit.Spec{
		Name:        "pdf_page_counter",
		Label:       toolkit.I18nString{EnUS: "PDF Page Counter"},
		Description: toolkit.I18nString{EnUS: "Count the total number of pages in a PDF file, returned as text and as a JSON page map."},
		Params: []toolkit.Param{
			toolkit.PDFContentParam(toolkit.I18nString{
				EnUS:   "PDF file content (base64 encoded)",
				ZhHans: "PDF 文件内容（base64 编码）",
			}),
		},
	}
}

func (t *PageCounter) Invoke(ctx context.Context, req *toolkit.Request, emit toolkit.EmitFunc) error {
	if len(req.FileData) == 0 {
		return fmt.Errorf("Invalid PDF content format. Expected File object.")
	}

	doc, err := pdfengine.Open(req.FileData)
	if err != nil {
		return fmt.Errorf("Invalid PDF file: %v", err)
	}
	totalPages := doc.PageCount()

	if err := emit(toolkit.TextMessage(strconv.Itoa(totalPages))); err != nil {
		return err
	}

	// Key padding follows the digit count of the total so that the
	// JSON keys sort in page order ("page01" .. "page12")
	padding := len(strconv.Itoa(totalPages))
	pageMap := make(map[string]int, totalPages)
	for i := 1; i <= totalPages; i++ {
		pageMap[fmt.Sprintf("page%0*d", padding, i)] = i
	}
	msg, err := toolkit.JSONMessage(pageMap)
	if err != nil {
		return fmt.Errorf("Error counting pages in PDF: %v", err)
	}
	return emit(msg)
}
