package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShimmerString(t *testing.T) {
	v := NewString("42")
	n, err := AsInt(v)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, "42", v.String()) // bytes survive shimmering to int
}

func TestShimmerHexOctal(t *testing.T) {
	n, err := AsInt(NewString("0x1F"))
	require.NoError(t, err)
	assert.Equal(t, int64(31), n)

	n, err = AsInt(NewString("010"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	n, err = AsInt(NewString("0"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestAsBool(t *testing.T) {
	cases := map[string]bool{
		"1": true, "true": true, "yes": true, "on": true,
		"0": false, "false": false, "no": false, "off": false,
		"5": true, "-1": true,
	}
	for s, want := range cases {
		b, err := AsBool(NewString(s))
		require.NoError(t, err)
		assert.Equal(t, want, b, "AsBool(%q)", s)
	}
}

func TestAsListRoundTrip(t *testing.T) {
	items, err := AsList(NewString("a {b c} d"))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].String())
	assert.Equal(t, "b c", items[1].String())
	assert.Equal(t, "d", items[2].String())
}

func TestDupSharedCopiesOnWrite(t *testing.T) {
	i := New()
	v := i.NewValue(NewRep(NewDictRep()))
	v.IncrRef() // simulate a second owner
	d := i.DupShared(v)
	assert.NotSame(t, v, d)
	d2 := i.DupShared(v) // shared guard consistent across repeated calls
	assert.NotSame(t, v, d2)
}
