// Package complexity computes per-function complexity for TypeScript and
// JavaScript sources via tree-sitter. Builds without cgo get a stub that
// reports the analysis as unavailable.
package complexity

// Language is a tree-sitter grammar this package can parse.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
)

// ComplexityResult contains complexity metrics for a single function or method.
type ComplexityResult struct {
	// Name is the function/method name
	Name string `json:"name"`

	// StartLine is the 1-based line where the function node starts
	StartLine int `json:"startLine"`

	// EndLine is the 1-based line where the function node ends
	EndLine int `json:"endLine"`

	// Cyclomatic is the cyclomatic complexity (decision points + 1)
	Cyclomatic int `json:"cyclomatic"`

	// Cognitive is the cognitive complexity (nested depth weighted)
	Cognitive int `json:"cognitive"`

	Lines int `json:"lines"`
}

// FileComplexity contains complexity metrics for one document.
type FileComplexity struct {
	Path      string             `json:"path"`
	Language  Language           `json:"language"`
	Functions []ComplexityResult `json:"functions"`

	TotalCyclomatic   int     `json:"totalCyclomatic"`
	AverageCyclomatic float64 `json:"averageCyclomatic"`
	MaxCyclomatic     int     `json:"maxCyclomatic"`
	MaxCognitive      int     `json:"maxCognitive"`
	FunctionCount     int     `json:"functionCount"`

	// Error is set if analysis failed
	Error string `json:"error,omitempty"`
}

// Aggregate computes aggregate metrics from function results.
func (fc *FileComplexity) Aggregate() {
	fc.FunctionCount = len(fc.Functions)
	fc.TotalCyclomatic = 0
	fc.MaxCyclomatic = 0
	fc.MaxCognitive = 0
	fc.AverageCyclomatic = 0
	if fc.FunctionCount == 0 {
		return
	}

	for _, f := range fc.Functions {
		fc.TotalCyclomatic += f.Cyclomatic
		if f.Cyclomatic > fc.MaxCyclomatic {
			fc.MaxCyclomatic = f.Cyclomatic
		}
		if f.Cognitive > fc.MaxCognitive {
			fc.MaxCognitive = f.Cognitive
		}
	}

	fc.AverageCyclomatic = float64(fc.TotalCyclomatic) / float64(fc.FunctionCount)
}

// ByStartLine maps each start line to the cyclomatic complexity of the first
// (outermost) function that starts there.
func (fc *FileComplexity) ByStartLine() map[int]int {
	if fc == nil {
		return nil
	}
	out := make(map[int]int, len(fc.Functions))
	for _, f := range fc.Functions {
		if _, ok := out[f.StartLine]; !ok {
			out[f.StartLine] = f.Cyclomatic
		}
	}
	return out
}

// LanguageFromID maps a document language id to a grammar. JSX shares the
// JavaScript grammar.
func LanguageFromID(languageID string) (Language, bool) {
	switch languageID {
	case "typescript":
		return LangTypeScript, true
	case "typescriptreact":
		return LangTSX, true
	case "javascript", "javascriptreact":
		return LangJavaScript, true
	default:
		return "", false
	}
}
