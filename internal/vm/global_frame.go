package vm

import (
	"github.com/dolthub/swiss"

	"github.com/jcorbin/tinylisp/internal/value"
)

// globalFrame backs frames[0], the program's single top-level scope that
// every local frame falls back to on an unbound LOAD. Global programs can
// accumulate many top-level `let`-bound names, so this is backed by a
// swiss-table map rather than a plain Go map.
//
// Grounded on mna-nenuphar/lang/machine/map.go's *swiss.Map[Value, Value]
// wrapper, keyed here by variable name string instead of by Value since
// globals are addressed by identifier, not by value identity.
type globalFrame struct {
	m *swiss.Map[string, value.Value]
}

func newGlobalFrame() *globalFrame {
	return &globalFrame{m: swiss.NewMap[string, value.Value](64)}
}

func (g *globalFrame) get(name string) (value.Value, bool) { return g.m.Get(name) }
func (g *globalFrame) set(name string, v value.Value)      { g.m.Put(name, v) }

var _ frame = (*globalFrame)(nil)
