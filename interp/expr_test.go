package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalExprString(t *testing.T, vm *Interp, src string) string {
	t.Helper()
	prog, err := CompileExpr(src, "")
	require.NoError(t, err)
	v, err := vm.EvalExprProgram(vm.topFrame, prog)
	require.NoError(t, err)
	return v.String()
}

func TestExprPrecedence(t *testing.T) {
	vm := New()
	cases := map[string]string{
		"1 + 2 * 3":       "7",
		"(1 + 2) * 3":     "9",
		"2 ** 3 ** 2":     "512", // right-associative: 2**(3**2)
		"10 / 3":          "3",
		"-10 / 3":         "-4", // floor division
		"10 % 3":          "1",
		"-10 % 3":         "2", // floored modulo, sign matches divisor
		"1 ? 2 : 3":       "2",
		"0 ? 2 : 1 ? 5 : 6": "5",
		"!0":              "1",
		"~0":              "-1",
		"1 << 4":          "16",
		"5 eq 5":          "1",
		"5 ne 6":          "1",
		"2 in {1 2 3}":    "1",
		"9 ni {1 2 3}":    "1",
	}
	for src, want := range cases {
		assert.Equal(t, want, evalExprString(t, vm, src), "expr %q", src)
	}
}

func TestExprShortCircuit(t *testing.T) {
	vm := New()
	assert.Equal(t, "0", evalExprString(t, vm, "0 && [error boom]"))
	assert.Equal(t, "1", evalExprString(t, vm, "1 || [error boom]"))
}

func TestExprMathFunc(t *testing.T) {
	vm := New()
	assert.Equal(t, "4", evalExprString(t, vm, "abs(-4)"))
	assert.Equal(t, "3", evalExprString(t, vm, "int(3.9)"))
	assert.Equal(t, "9.0", evalExprString(t, vm, "pow(3,2)"))
}
