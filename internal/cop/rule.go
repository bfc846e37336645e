package cop

import (
	"github.com/donaldgifford/deflint/internal/parser"
	"github.com/donaldgifford/deflint/internal/rewriter"
	"github.com/donaldgifford/deflint/internal/source"
)

// Rule inspects the node kinds it subscribes to. Implementations hold no
// per-run state: everything a visit produces goes through the Context.
type Rule interface {
	// Name returns the qualified rule name used in config and output
	// (e.g., "Style/DefWithParentheses").
	Name() string

	// Kinds lists the node kinds the rule is dispatched for.
	Kinds() []parser.Kind

	// Check inspects n and reports through ctx.
	Check(ctx *Context, n *parser.Node)
}

// Settings is the resolved configuration of one rule.
type Settings struct {
	Enabled  bool
	Severity Severity
	// Message replaces the rule's default message when non-empty.
	Message string
}

// DefaultSettings enables a rule at convention severity.
func DefaultSettings() Settings {
	return Settings{Enabled: true, Severity: SeverityConvention}
}

type pending struct {
	rng   source.Range
	msg   string
	edits []rewriter.Edit
}

// Context is handed to one Rule.Check call. Reports are held until the call
// returns and are dropped if it panics.
type Context struct {
	buf         *source.Buffer
	settings    Settings
	autocorrect bool
	pending     []pending
	done        bool
}

// Source returns the buffer being inspected.
func (c *Context) Source() *source.Buffer {
	return c.buf
}

// Autocorrect reports whether corrections will be applied. Rules may skip
// computing edits when it is false.
func (c *Context) Autocorrect() bool {
	return c.autocorrect
}

// Message returns the configured message override, or def.
func (c *Context) Message(def string) string {
	if c.settings.Message != "" {
		return c.settings.Message
	}
	return def
}

// Report records an offence at r with an optional correction. The edits
// form one correction and are applied together or not at all.
func (c *Context) Report(r source.Range, msg string, edits ...rewriter.Edit) {
	if c.done {
		return
	}
	c.pending = append(c.pending, pending{
		rng:   r,
		msg:   msg,
		edits: append([]rewriter.Edit(nil), edits...),
	})
}
