package domain

import (
	"path/filepath"
	"strings"
)

// Format identifies a supported document format. The set is closed:
// parser dispatch switches over it exhaustively, so adding a format is
// a compile-time change rather than a runtime registration.
type Format string

// Supported document formats.
const (
	FormatText         Format = "text"
	FormatPDF          Format = "pdf"
	FormatDoc          Format = "doc"
	FormatDocx         Format = "docx"
	FormatXLS          Format = "xls"
	FormatXLSX         Format = "xlsx"
	FormatCSV          Format = "csv"
	FormatHTML         Format = "html"
	FormatMarkdown     Format = "markdown"
	FormatRTF          Format = "rtf"
	FormatJSON         Format = "json"
	FormatImage        Format = "image"
	FormatPresentation Format = "pptx"
)

// extensionFormats maps allowed file extensions to their format.
// This is the closed set of 19 extensions accepted at upload.
var extensionFormats = map[string]Format{
	".txt":      FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".pdf":      FormatPDF,
	".doc":      FormatDoc,
	".docx":     FormatDocx,
	".xls":      FormatXLS,
	".xlsx":     FormatXLSX,
	".csv":      FormatCSV,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".rtf":      FormatRTF,
	".json":     FormatJSON,
	".png":      FormatImage,
	".jpg":      FormatImage,
	".jpeg":     FormatImage,
	".bmp":      FormatImage,
	".tiff":     FormatImage,
	".pptx":     FormatPresentation,
}

// FormatForFilename resolves the declared format from a filename
// extension. Unknown extensions fail fast with ErrUnsupportedFormat
// before any parsing I/O happens.
func FormatForFilename(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := extensionFormats[ext]
	if !ok {
		return "", ErrUnsupportedFormat
	}
	return f, nil
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	switch f {
	case FormatText, FormatPDF, FormatDoc, FormatDocx, FormatXLS,
		FormatXLSX, FormatCSV, FormatHTML, FormatMarkdown, FormatRTF,
		FormatJSON, FormatImage, FormatPresentation:
		return true
	}
	return false
}

// AllowedExtensions returns the closed set of accepted file extensions.
func AllowedExtensions() []string {
	exts := make([]string, 0, len(extensionFormats))
	for ext := range extensionFormats {
		exts = append(exts, ext)
	}
	return exts
}
