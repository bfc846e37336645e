// Package style holds rules about the layout of method definitions.
package style

import (
	"github.com/donaldgifford/deflint/internal/cop"
	"github.com/donaldgifford/deflint/internal/parser"
	"github.com/donaldgifford/deflint/internal/rewriter"
)

var defKinds = []parser.Kind{parser.KindDef, parser.KindDefs}

// DefWithParentheses flags empty parentheses on a multi-line method
// definition: def foo() ... end becomes def foo ... end.
type DefWithParentheses struct{}

// Name returns the config key for this rule.
func (*DefWithParentheses) Name() string {
	return "Style/DefWithParentheses"
}

func (*DefWithParentheses) Kinds() []parser.Kind {
	return defKinds
}

// Check reports the opening parenthesis of an empty argument list. One-line
// definitions are left alone since they have no end keyword on another line.
func (*DefWithParentheses) Check(ctx *cop.Context, n *parser.Node) {
	args := parser.DefArgs(n)
	if args == nil || len(args.Children) > 0 {
		return
	}
	begin, ok := args.Location(parser.LabelBegin)
	if !ok {
		return
	}
	kw, ok := n.Location(parser.LabelKeyword)
	if !ok {
		return
	}

	buf := ctx.Source()
	if buf.Line(kw.Start) == buf.Line(parser.DefBoundary(n).Start) {
		return
	}

	msg := ctx.Message("omit parentheses when the method has no parameters")
	end, ok := args.Location(parser.LabelEnd)
	if !ok {
		// Unterminated list: nothing safe to remove.
		ctx.Report(begin, msg)
		return
	}
	ctx.Report(begin, msg, rewriter.Remove(begin), rewriter.Remove(end))
}
