// Package pdfengine wraps the two halves of PDF handling: page level
// document surgery through pdfcpu and page rasterization through a
// pluggable Rasterizer backend.
package pdfengine

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document is an opened, validated PDF held in memory. It is not safe
// for concurrent use; open one per invocation.
type Document struct {
	ctx  *model.Context
	data []byte
}

// Open parses and validates PDF bytes.
func Open(data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &Document{ctx: ctx, data: data}, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Data returns the original bytes the document was opened from.
func (d *Document) Data() []byte {
	return d.data
}

// ExtractPages copies the given 0-indexed pages into a new PDF. The
// output page sequence follows the input order exactly and a page that
// appears twice in indices appears twice in the output.
func (d *Document) ExtractPages(indices []int) ([]byte, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("no pages selected")
	}
	pageNrs := make([]int, len(indices))
	for i, index := range indices {
		if index < 0 || index >= d.ctx.PageCount {
			return nil, fmt.Errorf("page index %d out of range, document has %d pages", index, d.ctx.PageCount)
		}
		pageNrs[i] = index + 1
	}

	extracted, err := pdfcpu.ExtractPages(d.ctx, pageNrs, false)
	if err != nil {
		return nil, fmt.Errorf("failed to extract pages: %w", err)
	}

	var buf bytes.Buffer
	if err := api.WriteContext(extracted, &buf); err != nil {
		return nil, fmt.Errorf("failed to write extracted pages: %w", err)
	}
	return buf.Bytes(), nil
}

// ExtractPage copies a single 0-indexed page into a new one page PDF.
func (d *Document) ExtractPage(index int) ([]byte, error) {
	if index < 0 || index >= d.ctx.PageCount {
		return nil, fmt.Errorf("page index %d out of range, document has %d pages", index, d.ctx.PageCount)
	}

	reader, err := api.ExtractPage(d.ctx, index+1)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page %d: %w", index+1, err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted page %d: %w", index+1, err)
	}
	return data, nil
}

// Split returns one single-page PDF per page, in document order.
func (d *Document) Split() ([][]byte, error) {
	pages := make([][]byte, 0, d.ctx.PageCount)
	for pageNum := 1; pageNum <= d.ctx.PageCount; pageNum++ {
		reader, err := api.ExtractPage(d.ctx, pageNum)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", pageNum, err)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read extracted page %d: %w", pageNum, err)
		}
		pages = append(pages, data)
	}
	return pages, nil
}
