// Package builder constructs line-level dependence graphs from source files.
// It creates one node per statement line, links governed statements to the
// line controlling them, records variable writes and reads, and optionally
// derives data dependences with the dfg package.
package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/linepdg/pkg/dfg"
	"github.com/l3aro/linepdg/pkg/pdg"
)

// Language identifies a supported source language.
type Language string

const (
	LanguageGo Language = "go"
)

// Options controls graph construction.
type Options struct {
	// DataEdges adds CDG edges computed by reaching definitions.
	DataEdges bool
}

// Output is the result of building one function.
type Output struct {
	Graph *pdg.Graph
	// Diagnostics holds the failed node results met during construction.
	// A failed line is left out of the graph and construction continues.
	Diagnostics []pdg.Result
	// DefUse is the number of def-use chains found when DataEdges is set.
	DefUse int
}

// HasErrors reports whether any line failed to produce a node.
func (o *Output) HasErrors() bool {
	for _, d := range o.Diagnostics {
		if d.HasError() {
			return true
		}
	}
	return false
}

// LanguageFromPath maps a file extension to a Language.
func LanguageFromPath(filePath string) (Language, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".go":
		return LanguageGo, nil
	default:
		return "", pdg.NewAnalysisError(pdg.KindUnsupported, "unsupported file type: %s", filePath)
	}
}

// Build reads filePath and builds the graph of the named function.
func Build(filePath string, functionName string, opts Options) (*Output, error) {
	lang, err := LanguageFromPath(filePath)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", filePath, err)
	}

	out, err := BuildSource(lang, content, functionName, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return out, nil
}

// BuildSource builds the graph of the named function from in-memory source.
func BuildSource(lang Language, content []byte, functionName string, opts Options) (*Output, error) {
	var (
		out *Output
		err error
	)

	switch lang {
	case LanguageGo:
		out, err = buildGo(content, functionName)
	default:
		return nil, pdg.NewAnalysisError(pdg.KindUnsupported, "unsupported language: %s", lang)
	}
	if err != nil {
		return nil, err
	}

	if opts.DataEdges {
		n, err := dfg.AddDataEdges(out.Graph)
		if err != nil {
			return nil, fmt.Errorf("computing data dependences: %w", err)
		}
		out.DefUse = n
	}
	return out, nil
}
