package parse

import (
	"fmt"

	"github.com/andrewchambers/c99pp/cpp"
)

// scope records which identifiers of one block are typedef names. An entry
// of false is an ordinary identifier that hides an outer typedef.
type scope struct {
	parent *scope
	kv     map[*cpp.Symbol]bool
}

func (s *scope) lookup(sym *cpp.Symbol) (isType bool, ok bool) {
	isType, ok = s.kv[sym]
	if ok {
		return isType, true
	}
	if s.parent != nil {
		return s.parent.lookup(sym)
	}
	return false, false
}

func (s *scope) isType(sym *cpp.Symbol) bool {
	isType, _ := s.lookup(sym)
	return isType
}

// define fails when a typedef name is involved in a redeclaration within
// the same scope. Ordinary identifiers may be declared more than once.
func (s *scope) define(sym *cpp.Symbol, isType bool) error {
	prev, ok := s.kv[sym]
	if ok && (prev || isType) {
		return fmt.Errorf("redefinition of %s", sym)
	}
	s.kv[sym] = isType
	return nil
}

func newScope(parent *scope) *scope {
	ret := &scope{}
	ret.parent = parent
	ret.kv = make(map[*cpp.Symbol]bool)
	return ret
}
