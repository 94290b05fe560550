package tools

import (
	"context"
	"fmt"

	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
)

// Splitter splits a PDF into one single-page PDF per page. The summary
// text leads the stream, then the page blobs in page order.
type Splitter struct{}

func (t *Splitter) Spec() toolkit.Spec {
	return toolkit.Spec{
		Name:        "pdf_splitter",
		Label:       toolkit.I18nString{EnUS: "PDF Splitter"},
		Description: toolkit.I18nString{EnUS: "Split a PDF file into individual pages, one PDF per page."},
		Params: []toolkit.Param{
			toolkit.PDFContentParam(toolkit.I18nString{
				EnUS:   "PDF file content to split into individual pages",
				ZhHans: "要分割成单独页面的PDF文件内容",
			}),
		},
	}
}

func (t *Splitter) Invoke(ctx context.Context, req *toolkit.Request, emit toolkit.EmitFunc) error {
	if len(req.FileData) == 0 {
		return fmt.Errorf("Invalid PDF content format. Expected File object.")
	}

	doc, err := pdfengine.Open(req.FileData)
	if err != nil {
		return fmt.Errorf("Invalid PDF file: %v", err)
	}
	totalPages := doc.PageCount()
	if totalPages == 0 {
		return fmt.Errorf("The PDF file contains no pages.")
	}

	pages, err := doc.Split()
	if err != nil {
		return fmt.Errorf("Error splitting PDF into pages: %v", err)
	}

	base := baseFileName(req.FileName)

	if err := emit(toolkit.TextMessage(fmt.Sprintf("Successfully split PDF into %d pages.", totalPages))); err != nil {
		return err
	}
	for i, pageData := range pages {
		err := emit(toolkit.BlobMessage(pageData, toolkit.BlobMeta{
			MimeType: "application/pdf",
			FileName: fmt.Sprintf("%s_page%d.pdf", base, i+1),
		}))
		if err != nil {
			return err
		}
	}
	return nil
}
