package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeRaw_KeyOrderIndependent(t *testing.T) {
	a := []byte(`{"b": 2, "a": {"y": 2, "x": 1}}`)
	b := []byte(`{"a":{"x":1,"y":2},"b":2}`)

	ca, err := CanonicalizeRaw(a)
	require.NoError(t, err)
	cb, err := CanonicalizeRaw(b)
	require.NoError(t, err)

	assert.Equal(t, ca, cb)
	assert.Equal(t, `{"a":{"x":1,"y":2},"b":2}`, string(ca))
}

func TestCanonicalizeRaw_ContentChangesBytes(t *testing.T) {
	ca, err := CanonicalizeRaw([]byte(`{"a":1}`))
	require.NoError(t, err)
	cb, err := CanonicalizeRaw([]byte(`{"a":2}`))
	require.NoError(t, err)

	assert.NotEqual(t, ca, cb)
}

func TestCanonicalizeRaw_PreservesNumericLiterals(t *testing.T) {
	out, err := CanonicalizeRaw([]byte(`{"big":900719925474099312345,"frac":0.30000000000000004}`))
	require.NoError(t, err)
	assert.Equal(t, `{"big":900719925474099312345,"frac":0.30000000000000004}`, string(out))
}

func TestCanonicalizeRaw_ArraysKeepOrder(t *testing.T) {
	out, err := CanonicalizeRaw([]byte(`{"impacts": ["b", "a", "c"]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"impacts":["b","a","c"]}`, string(out))
}

func TestCanonicalizeRaw_RejectsInvalidJSON(t *testing.T) {
	_, err := CanonicalizeRaw([]byte(`{"a":`))
	assert.Error(t, err)

	_, err = CanonicalizeRaw([]byte(`{"a":1} trailing`))
	assert.Error(t, err)
}

func TestCanonicalize_StructDeterminism(t *testing.T) {
	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	first, err := Canonicalize(doc{Name: "chain", Count: 3})
	require.NoError(t, err)
	second, err := Canonicalize(doc{Name: "chain", Count: 3})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
