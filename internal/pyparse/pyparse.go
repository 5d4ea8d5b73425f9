// Package pyparse extracts class declarations, methods, and imports from
// Python source files using tree-sitter.
package pyparse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Method is one method declared directly in a class body.
type Method struct {
	Name      string
	Line      int // 1-based, at the def keyword
	Column    int // 0-based
	EndLine   int
	EndColumn int

	IsAsync       bool
	IsAbstract    bool
	IsStatic      bool
	IsClassMethod bool
	IsProperty    bool

	Decorators []string
}

// Class is one top-level class declaration.
type Class struct {
	Name    string
	Line    int // 1-based, at the class keyword
	Bases   []string
	Methods []Method
}

// File holds everything extracted from one source file.
type File struct {
	Path    string
	Classes []Class

	// Imports maps locally bound names to the qualified names they refer
	// to, e.g. "BaseChannel" -> "base.BaseChannel" for
	// "from base import BaseChannel". Relative imports are recorded with
	// their dot prefix intact; callers resolve them against the module.
	Imports map[string]string
}

// Parser wraps a tree-sitter parser configured for Python. Parsers are not
// safe for concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// NewParser returns a Python parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// Parse extracts classes and imports from source. path is recorded verbatim
// on the result.
func (p *Parser) Parse(ctx context.Context, source []byte, path string) (*File, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	f := &File{Path: path, Imports: make(map[string]string)}

	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "class_definition":
			if cls, ok := parseClass(child, source); ok {
				f.Classes = append(f.Classes, cls)
			}
		case "decorated_definition":
			if def := innerDefinition(child); def != nil && def.Type() == "class_definition" {
				if cls, ok := parseClass(def, source); ok {
					f.Classes = append(f.Classes, cls)
				}
			}
		case "import_statement":
			parseImport(child, source, f.Imports)
		case "import_from_statement":
			parseFromImport(child, source, f.Imports)
		}
	}

	return f, nil
}

func parseClass(node *sitter.Node, source []byte) (Class, bool) {
	cls := Class{Line: int(node.StartPoint().Row) + 1}

	var body *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			if cls.Name == "" {
				cls.Name = nodeText(child, source)
			}
		case "argument_list":
			cls.Bases = parseBases(child, source)
		case "block":
			body = child
		}
	}

	if cls.Name == "" {
		return Class{}, false
	}
	if body != nil {
		cls.Methods = parseMethods(body, source)
	}
	return cls, true
}

// parseBases extracts base expressions as written. Subscripted generics are
// reduced to their base expression; keyword arguments like metaclass=... are
// not bases and are skipped.
func parseBases(argList *sitter.Node, source []byte) []string {
	var bases []string
	for i := 0; i < int(argList.ChildCount()); i++ {
		arg := argList.Child(i)
		switch arg.Type() {
		case "identifier", "attribute":
			bases = append(bases, nodeText(arg, source))
		case "subscript":
			if value := arg.ChildByFieldName("value"); value != nil {
				bases = append(bases, nodeText(value, source))
			}
		}
	}
	return bases
}

// parseMethods collects function definitions that are direct children of the
// class body. Nested declarations inside method bodies or conditionals are
// not directly declared methods and are ignored.
func parseMethods(body *sitter.Node, source []byte) []Method {
	var methods []Method
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "function_definition":
			if m, ok := parseMethod(child, source, nil); ok {
				methods = append(methods, m)
			}
		case "decorated_definition":
			decorators := parseDecorators(child, source)
			if def := innerDefinition(child); def != nil && def.Type() == "function_definition" {
				if m, ok := parseMethod(def, source, decorators); ok {
					methods = append(methods, m)
				}
			}
		}
	}
	return methods
}

func parseMethod(node *sitter.Node, source []byte, decorators []string) (Method, bool) {
	m := Method{
		Line:       int(node.StartPoint().Row) + 1,
		Column:     int(node.StartPoint().Column),
		EndLine:    int(node.EndPoint().Row) + 1,
		EndColumn:  int(node.EndPoint().Column),
		Decorators: decorators,
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "async":
			m.IsAsync = true
		case "identifier":
			if m.Name == "" {
				m.Name = nodeText(child, source)
			}
		}
	}
	if m.Name == "" {
		return Method{}, false
	}

	for _, d := range decorators {
		switch d {
		case "abstractmethod", "abc.abstractmethod":
			m.IsAbstract = true
		case "staticmethod":
			m.IsStatic = true
		case "classmethod":
			m.IsClassMethod = true
		case "property", "cached_property":
			m.IsProperty = true
		}
	}
	return m, true
}

// parseDecorators returns the decorator names of a decorated_definition in
// source order. Call decorators reduce to the callee; expressions more
// complex than name or attribute access are dropped.
func parseDecorators(node *sitter.Node, source []byte) []string {
	var decorators []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "decorator" {
			continue
		}
		if name := decoratorName(child.NamedChild(0), source); name != "" {
			decorators = append(decorators, name)
		}
	}
	return decorators
}

func decoratorName(expr *sitter.Node, source []byte) string {
	if expr == nil {
		return ""
	}
	switch expr.Type() {
	case "identifier":
		return nodeText(expr, source)
	case "attribute":
		text := nodeText(expr, source)
		if strings.Count(text, ".") == 1 {
			return text
		}
		return ""
	case "call":
		return decoratorName(expr.ChildByFieldName("function"), source)
	}
	return ""
}

// innerDefinition returns the definition wrapped by a decorated_definition.
func innerDefinition(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "function_definition", "class_definition":
			return child
		}
	}
	return nil
}

// parseImport handles "import a.b" and "import a.b as c".
func parseImport(node *sitter.Node, source []byte, imports map[string]string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			name := nodeText(child, source)
			imports[name] = name
		case "aliased_import":
			target, alias := parseAliased(child, source)
			if alias != "" {
				imports[alias] = target
			}
		}
	}
}

// parseFromImport handles "from m import a, b as c" and relative forms.
// Relative module prefixes keep their dots so the caller can resolve them
// against the importing module.
func parseFromImport(node *sitter.Node, source []byte, imports map[string]string) {
	var module string
	seenImportKeyword := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import":
			seenImportKeyword = true
		case "dotted_name":
			name := nodeText(child, source)
			if !seenImportKeyword {
				module = name
			} else {
				imports[lastSegment(name)] = joinModule(module, name)
			}
		case "relative_import":
			module = nodeText(child, source)
		case "aliased_import":
			target, alias := parseAliased(child, source)
			if alias != "" {
				imports[alias] = joinModule(module, target)
			}
		case "wildcard_import":
			// Nothing to bind.
		}
	}
}

func parseAliased(node *sitter.Node, source []byte) (target, alias string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			if target == "" {
				target = nodeText(child, source)
			}
		case "identifier":
			alias = nodeText(child, source)
		}
	}
	return target, alias
}

func joinModule(module, name string) string {
	if module == "" {
		return name
	}
	if strings.HasSuffix(module, ".") {
		// Relative import like "from . import x".
		return module + name
	}
	return module + "." + name
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
