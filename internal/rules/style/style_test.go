package style

import (
	"testing"

	"github.com/donaldgifford/deflint/internal/cop"
	"github.com/donaldgifford/deflint/internal/parser"
	"github.com/donaldgifford/deflint/internal/rewriter"
	"github.com/donaldgifford/deflint/internal/source"
)

func inspect(t *testing.T, src string, autocorrect bool, rules ...cop.Rule) (*source.Buffer, *cop.Result) {
	t.Helper()
	buf, err := source.FromString("test.rb", src)
	if err != nil {
		t.Fatal(err)
	}
	d := cop.NewDriver(rules, cop.Options{Autocorrect: autocorrect})
	return buf, d.Inspect(buf, parser.Parse(buf))
}

type ruleCase struct {
	name      string
	input     string
	offences  int
	at        string // text under the first offence
	corrected string // expected output; empty when nothing changes
}

// runCases checks the offence count, the offence location, the corrected
// text and that correcting is idempotent.
func runCases(t *testing.T, rule cop.Rule, tests []ruleCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, res := inspect(t, tt.input, true, rule)

			if len(res.Offences) != tt.offences {
				t.Fatalf("offences: got %d, want %d: %+v", len(res.Offences), tt.offences, res.Offences)
			}
			if tt.offences > 0 {
				o := res.Offences[0]
				if got := buf.Text(o.Range); got != tt.at {
					t.Errorf("offence range text: got %q, want %q", got, tt.at)
				}
				if o.Rule != rule.Name() || o.Severity != cop.SeverityConvention {
					t.Errorf("unexpected offence: %+v", o)
				}
			}

			want := tt.corrected
			if want == "" {
				want = tt.input
			}
			if got := string(res.Output); got != want {
				t.Errorf("corrected:\n got %q\nwant %q", got, want)
			}

			_, again := inspect(t, string(res.Output), true, rule)
			if n := len(again.Offences); n != 0 {
				t.Errorf("corrected source still has %d offences: %+v", n, again.Offences)
			}
		})
	}
}

func TestDefWithParentheses(t *testing.T) {
	runCases(t, &DefWithParentheses{}, []ruleCase{
		{
			name:      "multi-line empty parens",
			input:     "def foo()\n  1\nend\n",
			offences:  1,
			at:        "(",
			corrected: "def foo\n  1\nend\n",
		},
		{
			name:      "singleton",
			input:     "def self.foo()\n  1\nend\n",
			offences:  1,
			at:        "(",
			corrected: "def self.foo\n  1\nend\n",
		},
		{
			name:      "nested in class",
			input:     "class A\n  def foo()\n    1\n  end\nend\n",
			offences:  1,
			at:        "(",
			corrected: "class A\n  def foo\n    1\n  end\nend\n",
		},
		{
			name:      "parens on separate lines",
			input:     "def foo(\n)\n  1\nend\n",
			offences:  1,
			at:        "(",
			corrected: "def foo\n\n  1\nend\n",
		},
		{name: "endless", input: "def foo() = 1\n"},
		{name: "one line with end", input: "def foo(); end\n"},
		{name: "no parens", input: "def foo\n  1\nend\n"},
		{name: "with params", input: "def foo(a)\n  a\nend\n"},
	})
}

func TestDefWithoutParentheses(t *testing.T) {
	runCases(t, &DefWithoutParentheses{}, []ruleCase{
		{
			name:      "bare params",
			input:     "def foo a, b\n  a\nend\n",
			offences:  1,
			at:        "a, b",
			corrected: "def foo(a, b)\n  a\nend\n",
		},
		{
			name:      "singleton",
			input:     "def self.foo a\nend\n",
			offences:  1,
			at:        "a",
			corrected: "def self.foo(a)\nend\n",
		},
		{
			name:      "one line is not exempt",
			input:     "def foo a; end\n",
			offences:  1,
			at:        "a",
			corrected: "def foo(a); end\n",
		},
		{
			name:      "extra spacing",
			input:     "def foo  a,  b = 1\nend\n",
			offences:  1,
			at:        "a,  b = 1",
			corrected: "def foo(a,  b = 1)\nend\n",
		},
		{
			name:      "params continued after trailing comma",
			input:     "def foo a,\n        b\n  a + b\nend\n",
			offences:  1,
			at:        "a,\n        b",
			corrected: "def foo(a,\n        b)\n  a + b\nend\n",
		},
		{name: "parenthesized", input: "def foo(a, b)\nend\n"},
		{name: "no params", input: "def foo\nend\n"},
		{name: "empty parens", input: "def foo()\nend\n"},
		{name: "stray closer", input: "def foo a)\n  1\nend\n"},
	})
}

// Definitions inside literals are text and must survive untouched.
func TestRulesIgnoreDefinitionsInLiterals(t *testing.T) {
	inputs := map[string]string{
		"heredoc":         "DOC = <<~RUBY\n  def bar a\n  end\n\n  def baz()\n  end\nRUBY\n",
		"quoted heredoc":  "DOC = <<-'RUBY'\n  def bar a\n  end\n  RUBY\n",
		"regexp":          "PATTERN = /def foo()/\n",
		"data section":    "x = 1\n__END__\ndef bar a\nend\n",
		"string template": "code = \"def bar a\\nend\"\n",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, res := inspect(t, input, true, &DefWithParentheses{}, &DefWithoutParentheses{})
			if len(res.Offences) != 0 {
				t.Errorf("expected no offences, got %+v", res.Offences)
			}
			if got := string(res.Output); got != input {
				t.Errorf("source must be unchanged, got %q", got)
			}
		})
	}
}

func TestRulesWithoutAutocorrect(t *testing.T) {
	src := "def foo()\n  1\nend\n"
	_, res := inspect(t, src, false, &DefWithParentheses{})

	if len(res.Offences) != 1 {
		t.Fatalf("got %d offences, want 1", len(res.Offences))
	}
	o := res.Offences[0]
	if o.Corrected || !o.Correctable() || len(o.Edits) != 2 {
		t.Errorf("offence should carry an unapplied correction: %+v", o)
	}
	if string(res.Output) != src {
		t.Errorf("source changed without autocorrect: %q", res.Output)
	}
}

func TestBothRulesTogether(t *testing.T) {
	src := "def a()\n  1\nend\n\ndef b x\n  x\nend\n\ndef c(y)\n  y\nend\n"
	_, res := inspect(t, src, true, &DefWithParentheses{}, &DefWithoutParentheses{})

	if len(res.Offences) != 2 {
		t.Fatalf("got %d offences, want 2", len(res.Offences))
	}
	if res.Offences[0].Rule != "Style/DefWithParentheses" || res.Offences[1].Rule != "Style/DefWithoutParentheses" {
		t.Errorf("offences out of source order: %s, %s", res.Offences[0].Rule, res.Offences[1].Rule)
	}
	want := "def a\n  1\nend\n\ndef b(x)\n  x\nend\n\ndef c(y)\n  y\nend\n"
	if got := string(res.Output); got != want {
		t.Errorf("output:\n got %q\nwant %q", got, want)
	}
}

// renameDef rewrites the whole "name(...)" span of every definition, which
// overlaps the parentheses the style rules touch.
type renameDef struct{}

func (renameDef) Name() string         { return "Test/RenameDef" }
func (renameDef) Kinds() []parser.Kind { return []parser.Kind{parser.KindDef} }

func (renameDef) Check(ctx *cop.Context, n *parser.Node) {
	name, ok := n.Location(parser.LabelName)
	if !ok {
		return
	}
	span := name.Cover(parser.DefArgs(n).Loc)
	ctx.Report(name, "rename", rewriter.Replace(span, "renamed()"))
}

func TestConflictWithAnotherRule(t *testing.T) {
	src := "def foo()\n  1\nend\n\ndef bar()\n  2\nend\n"
	buf, err := source.FromString("test.rb", src)
	if err != nil {
		t.Fatal(err)
	}
	root := parser.Parse(buf)

	// Only the first definition conflicts: the other rule skips "bar".
	other := &skipBar{}
	d := cop.NewDriver([]cop.Rule{&DefWithParentheses{}, other}, cop.Options{Autocorrect: true})
	res := d.Inspect(buf, root)

	byRule := map[string]int{}
	for _, o := range res.Offences {
		byRule[o.Rule]++
	}
	if byRule["Style/DefWithParentheses"] != 2 || byRule["Test/RenameDef"] != 1 {
		t.Fatalf("both rules must report: %v", byRule)
	}

	want := "def foo()\n  1\nend\n\ndef bar\n  2\nend\n"
	if got := string(res.Output); got != want {
		t.Errorf("output:\n got %q\nwant %q", got, want)
	}
	for _, o := range res.Offences {
		onFoo := o.Range.Start < 10
		if onFoo && o.Corrected {
			t.Errorf("%s on foo must not be corrected", o.Rule)
		}
		if !onFoo && !o.Corrected {
			t.Errorf("%s on bar should be corrected", o.Rule)
		}
	}
}

type skipBar struct{ renameDef }

func (s *skipBar) Check(ctx *cop.Context, n *parser.Node) {
	if name := parser.DefName(n); name != nil && ctx.Source().Text(name.Loc) == "bar" {
		return
	}
	s.renameDef.Check(ctx, n)
}
