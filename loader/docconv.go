package loader

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"code.sajari.com/docconv"

	"github.com/poiesic/corpus/core"
)

var _ Loader = (*DocconvLoader)(nil)

// DocconvLoader extracts text from rich document formats through docconv,
// which shells out to format-specific converters where needed.
type DocconvLoader struct{}

// NewDocconvLoader creates a loader for rich document formats.
func NewDocconvLoader() *DocconvLoader {
	return &DocconvLoader{}
}

// Load converts the document at path into plain text.
func (l *DocconvLoader) Load(ctx context.Context, path string) (RawContent, error) {
	if err := ctx.Err(); err != nil {
		return RawContent{}, err
	}

	res, err := docconv.ConvertPath(path)
	if err != nil {
		return RawContent{}, fmt.Errorf("%w: conversion of %s failed: %v", core.ErrCorruptInput, path, err)
	}

	text := strings.TrimSpace(res.Body)
	if text == "" {
		return RawContent{}, fmt.Errorf("%w: no text extracted from %s", core.ErrCorruptInput, path)
	}

	return RawContent{Text: text, Pages: pagesFromMeta(res.Meta, text)}, nil
}

// Extensions returns the rich document extensions.
func (l *DocconvLoader) Extensions() []string {
	return []string{"pdf", "docx", "doc", "html", "rtf"}
}

// pagesFromMeta prefers the converter's reported page count over the
// character-based estimate.
func pagesFromMeta(meta map[string]string, text string) int {
	for _, key := range []string{"Pages", "PageCount"} {
		if v, ok := meta[key]; ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return estimatePages(text)
}
