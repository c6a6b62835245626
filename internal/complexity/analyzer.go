//go:build cgo

package complexity

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Analyzer computes complexity metrics for source documents. It is safe for
// concurrent use; parses are serialized on one tree-sitter parser.
type Analyzer struct {
	mu     sync.Mutex
	parser *Parser
}

// NewAnalyzer creates a new complexity analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		parser: NewParser(),
	}
}

// AnalyzeSource analyzes source code and returns complexity metrics. Parse
// failures are reported in FileComplexity.Error, not as an error.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, source []byte, lang Language) (*FileComplexity, error) {
	a.mu.Lock()
	root, err := a.parser.Parse(ctx, source, lang)
	a.mu.Unlock()
	if err != nil {
		return &FileComplexity{
			Path:     path,
			Language: lang,
			Error:    err.Error(),
		}, nil
	}

	fc := &FileComplexity{
		Path:      path,
		Language:  lang,
		Functions: make([]ComplexityResult, 0),
	}

	for _, fn := range findNodes(root, functionNodeTypes) {
		fc.Functions = append(fc.Functions, analyzeFunction(fn, source))
	}

	fc.Aggregate()
	return fc, nil
}

func analyzeFunction(node *sitter.Node, source []byte) ComplexityResult {
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	return ComplexityResult{
		Name:       functionName(node, source),
		StartLine:  startLine,
		EndLine:    endLine,
		Lines:      endLine - startLine + 1,
		Cyclomatic: cyclomatic(node, source),
		Cognitive:  cognitive(node, source, 0),
	}
}

func functionName(node *sitter.Node, source []byte) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return nameNode.Content(source)
	}
	switch node.Type() {
	case "arrow_function", "function_expression", "function":
		return "<anonymous>"
	}
	return "<unknown>"
}

// cyclomatic counts decision points + 1.
func cyclomatic(node *sitter.Node, source []byte) int {
	complexity := 1
	for _, dn := range findNodes(node, decisionNodeTypes) {
		if dn.Type() == "binary_expression" && !isBooleanOperator(dn, source) {
			continue
		}
		complexity++
	}
	return complexity
}

// cognitive weights each decision point by its nesting depth.
func cognitive(node *sitter.Node, source []byte, nesting int) int {
	complexity := 0
	nodeType := node.Type()

	if contains(decisionNodeTypes, nodeType) {
		if nodeType != "binary_expression" || isBooleanOperator(node, source) {
			complexity += 1 + nesting
		}
	}

	childNesting := nesting
	if contains(nestingNodeTypes, nodeType) {
		childNesting++
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			complexity += cognitive(child, source, childNesting)
		}
	}
	return complexity
}

// findNodes returns nodes of the given types in pre-order.
func findNodes(root *sitter.Node, types []string) []*sitter.Node {
	var result []*sitter.Node

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if contains(types, node.Type()) {
			result = append(result, node)
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}

	walk(root)
	return result
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// IsAvailable returns true when CGO is enabled.
func IsAvailable() bool {
	return true
}
