// Package parser defines the source front-end contract: a Parser lowers one
// source file into an index.File the semantic index can load.
package parser

import "github.com/imyousuf/CallEagle/internal/index"

// Language represents a supported programming language.
type Language string

const (
	LangJava Language = "java"
)

// FileExtensions maps each language to its recognized file extensions.
var FileExtensions = map[Language][]string{
	LangJava: {".java"},
}

// Parser defines the interface for language-specific source parsers.
type Parser interface {
	// Language returns which language this parser handles.
	Language() Language

	// Extensions returns the file extensions this parser can handle.
	Extensions() []string

	// ParseFile parses the given file content into declarations and body IR.
	ParseFile(filePath string, content []byte) (*index.File, error)
}
