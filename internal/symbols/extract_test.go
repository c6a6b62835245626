package symbols

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func extract(text string) *Snapshot {
	return Extract("src/a.ts", 1, "typescript", text, testTime)
}

type symShape struct {
	name      string
	kind      Kind
	container string // name of the container, "" if none
}

func shapes(s *Snapshot) []symShape {
	names := make(map[string]string, len(s.Symbols))
	for _, sym := range s.Symbols {
		names[sym.ID] = sym.Name
	}
	out := make([]symShape, len(s.Symbols))
	for i, sym := range s.Symbols {
		out[i] = symShape{name: sym.Name, kind: sym.Kind, container: names[sym.ContainerID]}
	}
	return out
}

func TestExtract_ClassWithMethod(t *testing.T) {
	s := extract("class Foo {\n  bar() {}\n}")

	want := []symShape{
		{"a.ts", KindFile, ""},
		{"Foo", KindClass, ""},
		{"bar", KindMethod, "Foo"},
	}
	if got := shapes(s); !reflect.DeepEqual(got, want) {
		t.Fatalf("symbols = %+v, want %+v", got, want)
	}

	foo, bar := s.Symbols[1], s.Symbols[2]
	if bar.ContainerID != foo.ID {
		t.Errorf("bar.ContainerID = %q, want %q", bar.ContainerID, foo.ID)
	}
	if want := (Range{Position{1, 7}, Position{1, 10}}); foo.SelectionRange != want {
		t.Errorf("Foo.SelectionRange = %+v, want %+v", foo.SelectionRange, want)
	}
	if want := (Range{Position{1, 7}, Position{3, 2}}); foo.Range != want {
		t.Errorf("Foo.Range = %+v, want %+v", foo.Range, want)
	}
	if want := (Range{Position{2, 3}, Position{2, 11}}); bar.Range != want {
		t.Errorf("bar.Range = %+v, want %+v", bar.Range, want)
	}
	if !foo.Range.ContainsRange(bar.Range) {
		t.Errorf("class range %+v does not contain method range %+v", foo.Range, bar.Range)
	}
}

func TestExtract_FunctionBodies(t *testing.T) {
	s := extract("function a(){ b(); }\nfunction b(){}")

	want := []symShape{
		{"a.ts", KindFile, ""},
		{"a", KindFunction, ""},
		{"b", KindFunction, ""},
	}
	if got := shapes(s); !reflect.DeepEqual(got, want) {
		t.Fatalf("symbols = %+v, want %+v", got, want)
	}

	a := s.Symbols[1]
	if want := (Range{Position{1, 10}, Position{1, 11}}); a.SelectionRange != want {
		t.Errorf("a.SelectionRange = %+v, want %+v", a.SelectionRange, want)
	}
	if want := (Range{Position{1, 10}, Position{1, 21}}); a.Range != want {
		t.Errorf("a.Range = %+v, want %+v", a.Range, want)
	}
	if a.Metrics == nil || a.Metrics.LinesOfCode != 1 {
		t.Errorf("a.Metrics = %+v, want LinesOfCode 1", a.Metrics)
	}
	if a.Summary != "function a(){ b(); }" {
		t.Errorf("a.Summary = %q", a.Summary)
	}
}

func TestExtract_FileSymbol(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantEnd Position
		wantLOC int
	}{
		{"empty", "", Position{1, 1}, 0},
		{"single line", "let x = 1", Position{1, 10}, 1},
		{"trailing newline", "a()\n", Position{2, 1}, 1},
		{"blank lines", "a()\n\n  \nb()", Position{4, 4}, 2},
		{"crlf", "a()\r\nbc()\r\n", Position{3, 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := extract(tt.text)
			if len(s.Symbols) == 0 || s.Symbols[0].Kind != KindFile {
				t.Fatalf("first symbol is not the file: %+v", s.Symbols)
			}
			f := s.File()
			if f.Range.Start != (Position{1, 1}) {
				t.Errorf("file start = %+v, want 1:1", f.Range.Start)
			}
			if f.Range.End != tt.wantEnd {
				t.Errorf("file end = %+v, want %+v", f.Range.End, tt.wantEnd)
			}
			if f.Metrics == nil || f.Metrics.LinesOfCode != tt.wantLOC {
				t.Errorf("file LinesOfCode = %+v, want %d", f.Metrics, tt.wantLOC)
			}
			if f.ContainerID != "" {
				t.Errorf("file ContainerID = %q, want empty", f.ContainerID)
			}
		})
	}
}

func TestExtract_EnclosingClassReset(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []symShape
	}{
		{
			name: "blank line ends class",
			text: "class A {\n  x() {}\n\n  y() {}\n}",
			want: []symShape{{"a.ts", KindFile, ""}, {"A", KindClass, ""}, {"x", KindMethod, "A"}},
		},
		{
			name: "closing brace ends class",
			text: "class A {\n  x() {}\n}\nrun() {}",
			want: []symShape{{"a.ts", KindFile, ""}, {"A", KindClass, ""}, {"x", KindMethod, "A"}},
		},
		{
			name: "function keeps class open",
			text: "class A {\n  function helper() {}\n  x() {}\n}",
			want: []symShape{
				{"a.ts", KindFile, ""},
				{"A", KindClass, ""},
				{"helper", KindFunction, ""},
				{"x", KindMethod, "A"},
			},
		},
		{
			name: "second class replaces first",
			text: "class A {}\nclass B {\n  m() {}\n}",
			want: []symShape{{"a.ts", KindFile, ""}, {"A", KindClass, ""}, {"B", KindClass, ""}, {"m", KindMethod, "B"}},
		},
		{
			name: "no method outside class",
			text: "foo() {}\nbar()",
			want: []symShape{{"a.ts", KindFile, ""}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shapes(extract(tt.text)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("symbols = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtract_Modifiers(t *testing.T) {
	text := strings.Join([]string{
		"export default abstract class Service<T> {",
		"  public static async create(opts) {",
		"  }",
		"  private readonly *walk() {",
		"  }",
		"  #secret() {",
		"  }",
		"}",
		"export async function main() {",
		"}",
		"function* gen() {}",
	}, "\n")

	want := []symShape{
		{"a.ts", KindFile, ""},
		{"Service", KindClass, ""},
		{"create", KindMethod, "Service"},
		{"walk", KindMethod, "Service"},
		{"#secret", KindMethod, "Service"},
		{"main", KindFunction, ""},
		{"gen", KindFunction, ""},
	}
	if got := shapes(extract(text)); !reflect.DeepEqual(got, want) {
		t.Errorf("symbols = %+v, want %+v", got, want)
	}
}

func TestExtract_RejectsStatements(t *testing.T) {
	text := strings.Join([]string{
		"class A {",
		"  run() {",
		"    if (ok) {",
		"    }",
		"    for (const x of xs) {",
		"    }",
		"    helper();",
		"    return (x);",
		"    this.other()",
		"  }",
		"}",
	}, "\n")

	want := []symShape{{"a.ts", KindFile, ""}, {"A", KindClass, ""}, {"run", KindMethod, "A"}}
	if got := shapes(extract(text)); !reflect.DeepEqual(got, want) {
		t.Errorf("symbols = %+v, want %+v", got, want)
	}
}

func TestExtract_BracesInStringsAndComments(t *testing.T) {
	text := strings.Join([]string{
		"function a() {",
		"  const s = '}';",
		"  const t = `${ {x: 1}.x } }`;",
		"  // }",
		"  /* } */",
		"}",
		"function b() {}",
	}, "\n")

	s := extract(text)
	a := s.Symbols[1]
	if a.Name != "a" {
		t.Fatalf("Symbols[1] = %q, want a", a.Name)
	}
	if want := (Position{6, 2}); a.Range.End != want {
		t.Errorf("a.Range.End = %+v, want %+v", a.Range.End, want)
	}
	if a.Metrics == nil || a.Metrics.LinesOfCode != 6 {
		t.Errorf("a.Metrics = %+v, want LinesOfCode 6", a.Metrics)
	}
}

func TestExtract_NoBody(t *testing.T) {
	text := "abstract class A {\n  abstract go(): void\n  declared(x: number)\n}"
	s := extract(text)

	for _, sym := range s.Symbols[2:] {
		if sym.Range != sym.SelectionRange {
			t.Errorf("%s: Range = %+v, want selection %+v", sym.Name, sym.Range, sym.SelectionRange)
		}
	}
}

func TestExtract_Deterministic(t *testing.T) {
	text := "class Foo {\n  bar() { baz() }\n}\nfunction baz() {}"
	first := extract(text)
	second := Extract("src/a.ts", 7, "typescript", text, testTime.Add(time.Hour))

	if !reflect.DeepEqual(first.Symbols, second.Symbols) {
		t.Errorf("repeated extraction differs:\n%+v\n%+v", first.Symbols, second.Symbols)
	}
}

func TestExtract_IDsDependOnLine(t *testing.T) {
	before := extract("function a() {}")
	after := extract("\nfunction a() {}")

	if before.Symbols[0].ID != after.Symbols[0].ID {
		t.Error("file symbol id should not depend on content")
	}
	if before.Symbols[1].ID == after.Symbols[1].ID {
		t.Error("moving a declaration to another line should change its id")
	}

	other := Extract("src/b.ts", 1, "typescript", "function a() {}", testTime)
	if other.Symbols[1].ID == before.Symbols[1].ID {
		t.Error("same declaration in another file should have another id")
	}
}

func TestExtract_ContainmentInvariant(t *testing.T) {
	text := strings.Join([]string{
		"class Loose",
		"  m1()",
		"  m2() {",
		"    work()",
		"  }",
	}, "\n")
	s := extract(text)

	for _, sym := range s.Symbols {
		if sym.ContainerID == "" {
			continue
		}
		parent, ok := s.Lookup(sym.ContainerID)
		if !ok {
			t.Fatalf("%s: container %q not in snapshot", sym.Name, sym.ContainerID)
		}
		if !parent.Range.ContainsRange(sym.Range) {
			t.Errorf("%s range %+v outside container %s range %+v", sym.Name, sym.Range, parent.Name, parent.Range)
		}
	}
}

func TestSummaryTruncated(t *testing.T) {
	long := "function f(" + strings.Repeat("a, ", 60) + "z) {}"
	s := extract(long)
	if got := len([]rune(s.Symbols[1].Summary)); got != maxSummaryLen {
		t.Errorf("summary length = %d, want %d", got, maxSummaryLen)
	}
}
