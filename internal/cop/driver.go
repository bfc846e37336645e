package cop

import (
	"github.com/rs/zerolog"

	"github.com/donaldgifford/deflint/internal/parser"
	"github.com/donaldgifford/deflint/internal/rewriter"
	"github.com/donaldgifford/deflint/internal/source"
)

// Options configures a Driver.
type Options struct {
	// Autocorrect registers reported corrections with the rewriter and
	// applies them after traversal.
	Autocorrect bool

	// Settings holds per-rule configuration keyed by rule name. Rules
	// without an entry use DefaultSettings.
	Settings map[string]Settings

	// Logger receives rule panics and dropped corrections. Nil disables
	// logging.
	Logger *zerolog.Logger
}

// Result is the outcome of inspecting one buffer.
type Result struct {
	Path     string
	Offences []Offence
	// Output is the corrected source, or the original source when nothing
	// was applied.
	Output []byte
	// Rewrite is nil unless autocorrect was enabled.
	Rewrite *rewriter.Result
}

// Changed reports whether any correction was applied.
func (r *Result) Changed() bool {
	return r.Rewrite != nil && r.Rewrite.Changed()
}

// Driver walks syntax trees and dispatches nodes to the rules subscribed to
// their kind. A Driver is read-only after NewDriver and may inspect many
// buffers concurrently.
type Driver struct {
	rules       []Rule
	settings    []Settings
	dispatch    map[parser.Kind][]int
	autocorrect bool
	log         zerolog.Logger
}

// NewDriver builds the kind dispatch table for the enabled rules. The
// position of a rule in rules is its priority when offences share a range.
func NewDriver(rules []Rule, opts Options) *Driver {
	d := &Driver{
		dispatch:    make(map[parser.Kind][]int),
		autocorrect: opts.Autocorrect,
		log:         zerolog.Nop(),
	}
	if opts.Logger != nil {
		d.log = *opts.Logger
	}

	for _, r := range rules {
		s, ok := opts.Settings[r.Name()]
		if !ok {
			s = DefaultSettings()
		}
		if !s.Enabled {
			continue
		}
		idx := len(d.rules)
		d.rules = append(d.rules, r)
		d.settings = append(d.settings, s)
		for _, k := range uniqueKinds(r.Kinds()) {
			d.dispatch[k] = append(d.dispatch[k], idx)
		}
	}
	return d
}

func uniqueKinds(kinds []parser.Kind) []parser.Kind {
	seen := make(map[parser.Kind]bool, len(kinds))
	out := kinds[:0:0]
	for _, k := range kinds {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Rules returns the enabled rules in priority order.
func (d *Driver) Rules() []Rule {
	return d.rules
}

// pass is the state of one Inspect call.
type pass struct {
	buf       *source.Buffer
	collector *Collector
	rewriter  *rewriter.Rewriter
}

// Inspect walks root depth-first in source order and returns the finalized
// offences. With autocorrect enabled the surviving corrections are applied
// to a copy of buf.
func (d *Driver) Inspect(buf *source.Buffer, root *parser.Node) *Result {
	p := &pass{
		buf:       buf,
		collector: &Collector{},
		rewriter:  rewriter.New(buf, rewriter.WithLogger(d.log)),
	}

	d.walk(p, root)

	res := &Result{Path: buf.Path, Output: buf.Bytes()}
	res.Offences = p.collector.Finalize()
	if !d.autocorrect {
		return res
	}

	// Corrections come from deduplicated offences only.
	for i := range res.Offences {
		o := &res.Offences[i]
		if len(o.Edits) > 0 {
			o.correction = p.rewriter.Add(o.Rule, o.Edits...) + 1
		}
	}
	res.Rewrite = p.rewriter.Apply()
	res.Output = res.Rewrite.Output
	for i := range res.Offences {
		o := &res.Offences[i]
		o.Corrected = o.correction > 0 && res.Rewrite.IsApplied(o.correction-1)
	}
	return res
}

func (d *Driver) walk(p *pass, n *parser.Node) {
	if n == nil {
		return
	}
	for _, idx := range d.dispatch[n.Kind] {
		d.visit(p, idx, n)
	}
	for _, c := range n.Children {
		d.walk(p, c)
	}
}

func (d *Driver) visit(p *pass, idx int, n *parser.Node) {
	rule := d.rules[idx]
	ctx := &Context{
		buf:         p.buf,
		settings:    d.settings[idx],
		autocorrect: d.autocorrect,
	}

	ok := d.check(ctx, rule, n)
	ctx.done = true
	if !ok {
		return
	}

	for _, r := range ctx.pending {
		o := Offence{
			Rule:     rule.Name(),
			Severity: ctx.settings.Severity,
			Range:    r.rng,
			Message:  r.msg,
			Edits:    r.edits,
			priority: idx,
		}
		if err := p.collector.Add(o); err != nil {
			d.log.Error().Err(err).Str("rule", rule.Name()).Msg("offence rejected")
		}
	}
}

// check runs one rule visit, recovering a panic so the remaining rules and
// nodes still run.
func (d *Driver) check(ctx *Context, rule Rule, n *parser.Node) (ok bool) {
	defer func() {
		if v := recover(); v != nil {
			d.log.Error().
				Str("file", ctx.buf.Path).
				Str("rule", rule.Name()).
				Stringer("node", n.Kind).
				Stringer("range", n.Loc).
				Interface("panic", v).
				Msg("rule failed; skipping node")
			ok = false
		}
	}()
	rule.Check(ctx, n)
	return true
}
