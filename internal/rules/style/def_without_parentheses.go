package style

import (
	"strings"

	"github.com/donaldgifford/deflint/internal/cop"
	"github.com/donaldgifford/deflint/internal/parser"
	"github.com/donaldgifford/deflint/internal/rewriter"
	"github.com/donaldgifford/deflint/internal/source"
)

// DefWithoutParentheses flags bare parameter lists: def foo a, b becomes
// def foo(a, b).
type DefWithoutParentheses struct{}

// Name returns the config key for this rule.
func (*DefWithoutParentheses) Name() string {
	return "Style/DefWithoutParentheses"
}

func (*DefWithoutParentheses) Kinds() []parser.Kind {
	return defKinds
}

// Check reports the whole argument list when it has parameters but no
// opening parenthesis. Unlike DefWithParentheses it applies to one-line
// definitions too.
func (*DefWithoutParentheses) Check(ctx *cop.Context, n *parser.Node) {
	args := parser.DefArgs(n)
	if args == nil || len(args.Children) == 0 {
		return
	}
	if _, ok := args.Location(parser.LabelBegin); ok {
		return
	}

	var edits []rewriter.Edit
	if gap, ok := nameGap(ctx.Source(), n, args); ok {
		edits = append(edits, rewriter.Remove(gap))
	}
	edits = append(edits, rewriter.Wrap(args.Loc, "(", ")")...)

	ctx.Report(args.Loc, ctx.Message("use parentheses when the method has parameters"), edits...)
}

// nameGap returns the blanks between the method name and its bare
// parameters, so the opening parenthesis ends up touching the name.
func nameGap(buf *source.Buffer, def, args *parser.Node) (source.Range, bool) {
	name := parser.DefName(def)
	if name == nil || name.Loc.End >= args.Loc.Start {
		return source.Range{}, false
	}
	gap := source.Range{Start: name.Loc.End, End: args.Loc.Start}
	if strings.Trim(buf.Text(gap), " \t") != "" {
		return source.Range{}, false
	}
	return gap, true
}
