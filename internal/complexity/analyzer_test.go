//go:build cgo

package complexity

import (
	"context"
	"testing"
)

func TestAnalyzeSource_JavaScript(t *testing.T) {
	source := []byte(`
function simple() {
	console.log("hello");
}

function withIf(x) {
	if (x > 0) {
		console.log("positive");
	}
}

const arrow = (x) => {
	if (x > 0) {
		return x * 2;
	}
	return x;
};

function withTernary(x) {
	return x > 0 ? "positive" : "non-positive";
}

function withAndOr(a, b) {
	if (a && b) {
		console.log("both");
	}
	return a || b;
}
`)

	analyzer := NewAnalyzer()
	fc, err := analyzer.AnalyzeSource(context.Background(), "test.js", source, LangJavaScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fc.Language != LangJavaScript {
		t.Errorf("Language = %s, want %s", fc.Language, LangJavaScript)
	}
	if len(fc.Functions) < 5 {
		t.Errorf("len(Functions) = %d, want at least 5", len(fc.Functions))
	}

	tests := []struct {
		name string
		want int
	}{
		{"simple", 1},
		{"withIf", 2},
		{"withTernary", 2},
		{"withAndOr", 4},
	}
	for _, tt := range tests {
		fn := findFunction(fc.Functions, tt.name)
		if fn == nil {
			t.Errorf("%s not found", tt.name)
			continue
		}
		if fn.Cyclomatic != tt.want {
			t.Errorf("%s: Cyclomatic = %d, want %d", tt.name, fn.Cyclomatic, tt.want)
		}
	}
}

func TestAnalyzeSource_TypeScriptClass(t *testing.T) {
	source := []byte(`export class Store {
  private items: string[] = [];

  add(item: string): void {
    if (item.length === 0) {
      throw new Error("empty");
    }
    this.items.push(item);
  }

  find(prefix: string): string | undefined {
    for (const item of this.items) {
      if (item.startsWith(prefix) || prefix === "") {
        return item;
      }
    }
    return undefined;
  }
}
`)

	analyzer := NewAnalyzer()
	fc, err := analyzer.AnalyzeSource(context.Background(), "store.ts", source, LangTypeScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.Error != "" {
		t.Fatalf("Error = %q", fc.Error)
	}

	byLine := fc.ByStartLine()
	if got := byLine[4]; got != 2 {
		t.Errorf("add (line 4) cyclomatic = %d, want 2", got)
	}
	// for-of, if, ||
	if got := byLine[11]; got != 4 {
		t.Errorf("find (line 11) cyclomatic = %d, want 4", got)
	}
}

func TestAnalyzeSource_TSX(t *testing.T) {
	source := []byte(`export function Badge(props: { label?: string }) {
  return <span>{props.label ? props.label : "none"}</span>;
}
`)

	analyzer := NewAnalyzer()
	fc, err := analyzer.AnalyzeSource(context.Background(), "badge.tsx", source, LangTSX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	badge := findFunction(fc.Functions, "Badge")
	if badge == nil {
		t.Fatal("Badge not found")
	}
	if badge.StartLine != 1 || badge.Cyclomatic != 2 {
		t.Errorf("Badge = %+v, want start line 1 cyclomatic 2", *badge)
	}
}

func TestCognitiveComplexity_NestingPenalty(t *testing.T) {
	source := []byte(`function flat(a, b) {
  if (a) { return 1; }
  if (b) { return 2; }
  return 0;
}

function nested(a, b) {
  if (a) {
    if (b) {
      return 1;
    }
  }
  return 0;
}
`)

	analyzer := NewAnalyzer()
	fc, err := analyzer.AnalyzeSource(context.Background(), "test.js", source, LangJavaScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	flat := findFunction(fc.Functions, "flat")
	nested := findFunction(fc.Functions, "nested")
	if flat == nil || nested == nil {
		t.Fatal("functions not found")
	}
	if flat.Cyclomatic != nested.Cyclomatic {
		t.Errorf("Cyclomatic flat = %d, nested = %d, want equal", flat.Cyclomatic, nested.Cyclomatic)
	}
	if nested.Cognitive <= flat.Cognitive {
		t.Errorf("Cognitive nested = %d, want more than flat = %d", nested.Cognitive, flat.Cognitive)
	}
}

func TestValidation_ESLint_Compatibility(t *testing.T) {
	testCases := []struct {
		name     string
		source   string
		expected int
	}{
		{
			name: "simple function",
			source: `function simple() {
    return 1;
}`,
			expected: 1,
		},
		{
			name: "ternary operator",
			source: `function ternary(x) {
    return x > 0 ? x : -x;
}`,
			expected: 2,
		},
		{
			name: "logical operators in condition",
			source: `function logicalOps(a, b) {
    if (a && b) {
        return true;
    }
    return a || b;
}`,
			expected: 4,
		},
		{
			name: "switch cases",
			source: `function switchCase(x) {
    switch (x) {
        case 1:
            return "one";
        case 2:
            return "two";
        default:
            return "other";
    }
}`,
			expected: 3, // default is not a case clause
		},
		{
			name: "try catch",
			source: `function guarded(fn) {
    try {
        return fn();
    } catch (err) {
        return null;
    }
}`,
			expected: 2,
		},
	}

	analyzer := NewAnalyzer()
	ctx := context.Background()

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fc, err := analyzer.AnalyzeSource(ctx, "test.js", []byte(tc.source), LangJavaScript)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(fc.Functions) != 1 {
				t.Fatalf("len(Functions) = %d, want 1", len(fc.Functions))
			}
			if fc.Functions[0].Cyclomatic != tc.expected {
				t.Errorf("Cyclomatic = %d, want %d", fc.Functions[0].Cyclomatic, tc.expected)
			}
		})
	}
}

func TestIsAvailable(t *testing.T) {
	if !IsAvailable() {
		t.Error("IsAvailable() = false in a cgo build")
	}
}

func findFunction(functions []ComplexityResult, name string) *ComplexityResult {
	for i := range functions {
		if functions[i].Name == name {
			return &functions[i]
		}
	}
	return nil
}
