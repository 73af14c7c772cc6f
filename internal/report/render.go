package report

import (
	"strings"

	"github.com/roach88/subcalc/internal/term"
)

// maxRenderDepth bounds how deep anonymous terms are expanded.
const maxRenderDepth = 8

// Render prints id as source-like text. Named items print as their name;
// anonymous terms are expanded, e.g. f[x IS a].
func Render(s *term.Store, id term.ID) string {
	var b strings.Builder
	renderTerm(&b, s, id, maxRenderDepth)
	return b.String()
}

func renderTerm(b *strings.Builder, s *term.Store, id term.ID, depth int) {
	target, err := s.Dereference(id)
	if err != nil {
		b.WriteString(s.Label(target))
		b.WriteByte('?')
		return
	}
	if name := s.Name(target); name != "" {
		b.WriteString(name)
		return
	}
	if depth == 0 {
		b.WriteString("...")
		return
	}

	switch def := s.Definition(target).(type) {
	case term.Substitution:
		renderTerm(b, s, def.Base, depth-1)
		b.WriteByte('[')
		for i, bind := range def.Subs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.Label(bind.Target.Item))
			b.WriteString(" IS ")
			renderTerm(b, s, bind.Value, depth-1)
		}
		b.WriteByte(']')
	case term.Decision:
		renderCall(b, s, "DECISION", depth, def.Left, def.Right, def.Equal, def.Unequal)
	case term.Struct, term.EmptyStruct:
		b.WriteByte('{')
		for i, f := range term.StructFields(s, target) {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Label)
			b.WriteString(": ")
			renderTerm(b, s, f.Value, depth-1)
		}
		b.WriteByte('}')
	case term.WithDependencies:
		renderTerm(b, s, def.Base, depth-1)
		b.WriteString(" DEP ")
		for i, dep := range def.Dependencies {
			if i > 0 {
				b.WriteByte(' ')
			}
			renderTerm(b, s, dep, depth-1)
		}
	case term.Axiom:
		renderCall(b, s, "AXIOM", depth, def.Statement)
	default:
		b.WriteString(s.Label(target))
	}
}

func renderCall(b *strings.Builder, s *term.Store, name string, depth int, args ...term.ID) {
	b.WriteString(name)
	b.WriteByte('(')
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		renderTerm(b, s, arg, depth-1)
	}
	b.WriteByte(')')
}
