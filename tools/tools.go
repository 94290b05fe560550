// Package tools implements the PDF page tools. Each tool validates its
// primitive parameters, drives the pdfengine, and streams results as
// ordered toolkit messages; the user-facing error and success wording
// is part of each tool's contract and is asserted by the tests.
package tools

import (
	"strings"

	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
)

// Options carries the tunables the render-backed tools need.
type Options struct {
	// DefaultZoom is used by pdf_to_png when no zoom is given.
	DefaultZoom float64
	// MaxZoom caps the zoom a caller may request.
	MaxZoom float64
	// ThumbnailWidth is the default output width for pdf_thumbnail.
	ThumbnailWidth int
}

// RegisterAll registers the full tool set in its canonical order.
func RegisterAll(registry *toolkit.Registry, rasterizer pdfengine.Rasterizer, opts Options) error {
	if opts.DefaultZoom <= 0 {
		opts.DefaultZoom = 2
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = 8
	}
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = 1024
	}

	all := []toolkit.Tool{
		&PageCounter{},
		&SinglePageExtractor{},
		&SpecificPagesExtractor{},
		&MultiPagesExtractor{},
		&Splitter{},
		&ToPNG{Rasterizer: rasterizer, DefaultZoom: opts.DefaultZoom, MaxZoom: opts.MaxZoom},
		&TextExtractor{},
		&Thumbnail{Rasterizer: rasterizer, DefaultWidth: opts.ThumbnailWidth},
	}
	for _, tool := range all {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// baseFileName strips a trailing ".pdf" (any case) from the uploaded
// filename, falling back to "document" when no name was supplied.
func baseFileName(fileName string) string {
	if fileName == "" {
		fileName = "document"
	}
	if strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		return fileName[:len(fileName)-4]
	}
	return fileName
}

// stemFileName strips everything from the last dot on, whatever the
// extension; used where output files change format (.pdf in, .png out).
func stemFileName(fileName string) string {
	if fileName == "" {
		fileName = "document"
	}
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		return fileName[:i]
	}
	return fileName
}
