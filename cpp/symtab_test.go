package cpp

import (
	"hash/fnv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolTable(t *testing.T) {
	st := NewSymbolTable()
	n := st.Len()

	name := []byte("counter")
	sym := st.Symbol(name)
	name[0] = 'x'
	assert.Equal(t, "counter", sym.String())
	assert.Same(t, sym, st.SymbolString("counter"))
	assert.Equal(t, n+1, st.Len())

	h := fnv.New32a()
	h.Write([]byte("counter"))
	assert.Equal(t, h.Sum32(), sym.Hash)
	assert.NotEqual(t, sym.Hash, st.SymbolString("counters").Hash)

	_, ok := st.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, n+2, st.Len())

	def, ok := st.Lookup("define")
	require.True(t, ok)
	assert.Equal(t, PPDefine, def.Code)
	assert.Equal(t, PPVaArgs, st.SymbolString("__VA_ARGS__").Code)
}
