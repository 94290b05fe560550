package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/drummonds/pdftoolbox/pagespec"
	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
)

// MultiPagesExtractor extracts pages using the full page-spec syntax
// (numbers, ranges, open bounds). An optional fixed spec is emitted
// ahead of the required dynamic spec; order and duplicates from both
// specs are preserved in the output document.
type MultiPagesExtractor struct{}

func (t *MultiPagesExtractor) Spec() toolkit.Spec {
	return toolkit.Spec{
		Name:        "pdf_multi_pages_extractor",
		Label:       toolkit.I18nString{EnUS: "PDF Multi Pages Extractor"},
		Description: toolkit.I18nString{EnUS: "Extract pages using flexible specifications like \"1-3,5\"; fixed pages are placed before dynamic pages, preserving order and duplicates."},
		Params: []toolkit.Param{
			toolkit.PDFContentParam(toolkit.I18nString{
				EnUS:   "The PDF file to process.",
				ZhHans: "要处理的 PDF 文件。",
			}),
			{
				Name:  "fixed_pages",
				Label: toolkit.I18nString{EnUS: "Fixed Pages (Optional)", ZhHans: "固定页码（可选）"},
				Description: toolkit.I18nString{
					EnUS:   `Pages to always include at the beginning. Order and duplicates are preserved. Examples: "1-3", "5", "1,3,1-2". Leave empty if none.`,
					ZhHans: `始终包含在开头的页面。保留顺序和重复项。例如："1-3", "5", "1,3,1-2"。如果没有则留空。`,
				},
				Type:     toolkit.ParamTypeString,
				Required: false,
				Default:  "",
			},
			{
				Name:  "dynamic_pages",
				Label: toolkit.I18nString{EnUS: "Dynamic Pages", ZhHans: "动态页码"},
				Description: toolkit.I18nString{
					EnUS:   `Pages to extract. Order and duplicates are preserved. Examples: "1-3", "5", "1,3,1-2".`,
					ZhHans: `要提取的页面。保留顺序和重复项。例如："1-3", "5", "1,3,1-2"。`,
				},
				Type:     toolkit.ParamTypeString,
				Required: true,
				Default:  "1",
			},
		},
	}
}

func (t *MultiPagesExtractor) Invoke(ctx context.Context, req *toolkit.Request, emit toolkit.EmitFunc) error {
	if len(req.FileData) == 0 {
		return fmt.Errorf("PDF content must be a File object")
	}

	dynamicStr, ok := req.StringParam("dynamic_pages")
	if !ok || dynamicStr == "" {
		return fmt.Errorf("Missing or invalid required parameter: dynamic_pages (must be a non-empty string)")
	}
	fixedStr := ""
	if raw, exists := req.Params["fixed_pages"]; exists {
		s, isString := raw.(string)
		if !isString {
			return fmt.Errorf("Invalid optional parameter: fixed_pages (must be a string)")
		}
		fixedStr = s
	}

	doc, err := pdfengine.Open(req.FileData)
	if err != nil {
		return fmt.Errorf("Invalid or corrupted PDF file: %v", err)
	}
	totalPages := doc.PageCount()
	if totalPages == 0 {
		return fmt.Errorf("The provided PDF file has no pages.")
	}

	// A blank fixed spec means "no fixed pages"; a non-blank spec that
	// selects nothing is a user error surfaced by RejectEmpty
	var fixedIndices []int
	if strings.TrimSpace(fixedStr) != "" {
		fixedIndices, err = pagespec.Parse(fixedStr, totalPages, pagespec.RejectEmpty)
		if err != nil {
			return fmt.Errorf("Invalid page specification: %v", err)
		}
	}
	dynamicIndices, err := pagespec.Parse(dynamicStr, totalPages, pagespec.RejectEmpty)
	if err != nil {
		return fmt.Errorf("Invalid page specification: %v", err)
	}

	useFixed := len(fixedIndices) > 0
	combined := make([]int, 0, len(fixedIndices)+len(dynamicIndices))
	combined = append(combined, fixedIndices...)
	combined = append(combined, dynamicIndices...)

	extracted, err := doc.ExtractPages(combined)
	if err != nil {
		return fmt.Errorf("An unexpected error occurred during PDF processing: %v", err)
	}

	base := baseFileName(req.FileName)
	dynamicDesc := describeSpec(dynamicStr)
	var outputName, successMessage string
	if useFixed {
		fixedDesc := describeSpec(fixedStr)
		outputName = fmt.Sprintf("%s_fixed_%s_plus_%s.pdf", base, fixedDesc, dynamicDesc)
		successMessage = fmt.Sprintf("Successfully extracted fixed pages '%s' followed by dynamic pages '%s'", fixedStr, dynamicStr)
	} else {
		outputName = fmt.Sprintf("%s_pages_%s.pdf", base, dynamicDesc)
		successMessage = fmt.Sprintf("Successfully extracted pages '%s' from PDF", dynamicStr)
	}

	if err := emit(toolkit.TextMessage(successMessage)); err != nil {
		return err
	}
	return emit(toolkit.BlobMessage(extracted, toolkit.BlobMeta{
		MimeType: "application/pdf",
		FileName: outputName,
	}))
}

// describeSpec turns a page spec into a filename-safe fragment:
// "1-3,5" becomes "1to3_5".
func describeSpec(spec string) string {
	return strings.ReplaceAll(strings.ReplaceAll(spec, ",", "_"), "-", "to")
}
