// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poiesic/corpus/core"
)

// RawContent is the extracted representation of an uploaded file before
// chunking. Pages is an estimate for formats without native pagination.
type RawContent struct {
	Text  string
	Pages int
}

// Loader extracts text content from a file on disk. Implementations claim a
// fixed set of file extensions and are selected through the Registry.
type Loader interface {
	// Load reads and extracts the content of the file at path.
	// Returns an error wrapping core.ErrCorruptInput when the bytes cannot
	// be parsed as the claimed format.
	Load(ctx context.Context, path string) (RawContent, error)

	// Extensions returns the lowercase extensions (without dot) this loader
	// claims.
	Extensions() []string
}

// Registry is the single dispatch point from file extension to Loader.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry builds a registry from the given loaders. Later loaders win
// when two claim the same extension.
func NewRegistry(loaders ...Loader) *Registry {
	r := &Registry{loaders: make(map[string]Loader)}
	for _, l := range loaders {
		for _, ext := range l.Extensions() {
			r.loaders[strings.ToLower(ext)] = l
		}
	}
	return r
}

// DefaultRegistry returns a registry with all built-in loaders registered.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewTextLoader(),
		NewCSVLoader(),
		NewDocconvLoader(),
	)
}

// ForFile selects the loader claiming the file's extension.
// Returns an error wrapping core.ErrUnsupportedFormat naming the rejected
// extension when no loader claims it.
func (r *Registry) ForFile(filename string) (Loader, error) {
	ext := NormalizeExtension(filename)
	if ext == "" {
		return nil, fmt.Errorf("%w: file %q has no extension", core.ErrUnsupportedFormat, filepath.Base(filename))
	}

	l, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: .%s", core.ErrUnsupportedFormat, ext)
	}
	return l, nil
}

// Supported returns the sorted list of extensions the registry can dispatch.
func (r *Registry) Supported() []string {
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// NormalizeExtension extracts the lowercase extension without the leading dot.
func NormalizeExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
