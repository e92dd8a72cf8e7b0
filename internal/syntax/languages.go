package syntax

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Dialect names the grammar a source file is parsed with.
type Dialect string

const (
	JavaScript Dialect = "javascript"
	TypeScript Dialect = "typescript"
	TSX        Dialect = "tsx"
)

// ErrUnsupportedLanguage is returned when no grammar exists for a dialect.
var ErrUnsupportedLanguage = errors.New("syntax: unsupported language")

// extToDialect maps file extensions to dialects. The javascript grammar
// accepts JSX, so .jsx shares it.
var extToDialect = map[string]Dialect{
	".js":  JavaScript,
	".jsx": JavaScript,
	".mjs": JavaScript,
	".cjs": JavaScript,
	".ts":  TypeScript,
	".mts": TypeScript,
	".cts": TypeScript,
	".tsx": TSX,
}

// dialectToGrammar is lazily initialized on first call via sync.Once.
var (
	dialectToGrammar map[Dialect]*sitter.Language
	grammarsOnce     sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		dialectToGrammar = map[Dialect]*sitter.Language{
			JavaScript: javascript.GetLanguage(),
			TypeScript: ts.GetLanguage(),
			TSX:        tsx.GetLanguage(),
		}
	})
}

// DialectForFile returns the dialect for a file path based on its extension.
// Returns ("", false) if the extension is not recognized. Declaration files
// (.d.ts) carry no runtime code and are not recognized.
func DialectForFile(path string) (Dialect, bool) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".d.ts") {
		return "", false
	}
	d, ok := extToDialect[filepath.Ext(lower)]
	return d, ok
}

// GrammarFor returns the tree-sitter Language for a dialect.
func GrammarFor(d Dialect) (*sitter.Language, bool) {
	initGrammars()
	l, ok := dialectToGrammar[d]
	return l, ok
}

// Dialects lists the supported dialects in a stable order.
func Dialects() []Dialect {
	return []Dialect{JavaScript, TypeScript, TSX}
}
