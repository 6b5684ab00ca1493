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


package parsing

import (
	"context"
	"fmt"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/loader"
	"github.com/poiesic/corpus/splitter"
)

// Built-in parser names.
const (
	ParserText    = "text"
	ParserCSV     = "csv"
	ParserDocconv = "docconv"
)

// Parser re-extracts and re-chunks a document from its stored file. Each
// parser is a named extraction strategy selectable per re-parse request.
type Parser interface {
	// Name identifies the strategy; recorded on Metadata.Parser.
	Name() string

	// Parse produces a fresh chunk sequence for the document, with freshly
	// generated chunk ids, plus the page count of the source.
	Parse(ctx context.Context, filePath string, documentID core.ID) ([]core.Chunk, int, error)
}

// loaderParser adapts a content loader plus the splitter into a Parser.
type loaderParser struct {
	name  string
	load  loader.Loader
	split *splitter.Splitter
}

var _ Parser = (*loaderParser)(nil)

func (p *loaderParser) Name() string {
	return p.name
}

func (p *loaderParser) Parse(ctx context.Context, filePath string, documentID core.ID) ([]core.Chunk, int, error) {
	content, err := p.load.Load(ctx, filePath)
	if err != nil {
		return nil, 0, err
	}
	return p.split.Split(content.Text, documentID), content.Pages, nil
}

// Registry maps parser names to implementations. It is the single dispatch
// point for re-parse requests.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds a parser registry over the given splitter, registering
// the built-in loader-backed parsers.
func NewRegistry(split *splitter.Splitter) *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}
	r.Register(&loaderParser{name: ParserText, load: loader.NewTextLoader(), split: split})
	r.Register(&loaderParser{name: ParserCSV, load: loader.NewCSVLoader(), split: split})
	r.Register(&loaderParser{name: ParserDocconv, load: loader.NewDocconvLoader(), split: split})
	return r
}

// Register adds or replaces a parser under its name.
func (r *Registry) Register(p Parser) {
	r.parsers[p.Name()] = p
}

// Get resolves a parser by name.
func (r *Registry) Get(name string) (Parser, error) {
	p, ok := r.parsers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParser, name)
	}
	return p, nil
}

// ForDocument resolves the parser for a document: the explicit name when
// given, otherwise by the document's file extension.
func (r *Registry) ForDocument(name string, doc *core.Document) (Parser, error) {
	if name != "" {
		return r.Get(name)
	}

	defaultName, ok := defaultParserName(doc.Metadata.Type)
	if !ok {
		return nil, fmt.Errorf("%w: .%s", core.ErrUnsupportedFormat, doc.Metadata.Type)
	}
	return r.Get(defaultName)
}

// Names returns the registered parser names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	return names
}

func defaultParserName(extension string) (string, bool) {
	switch extension {
	case "txt", "md", "log":
		return ParserText, true
	case "csv":
		return ParserCSV, true
	case "pdf", "docx", "doc", "html", "rtf":
		return ParserDocconv, true
	default:
		return "", false
	}
}
