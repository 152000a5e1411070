package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalOK(t *testing.T, vm *Interp, src string) string {
	t.Helper()
	res, err := vm.Eval(src)
	require.NoError(t, err)
	return res
}

func TestSetGet(t *testing.T) {
	vm := New()
	assert.Equal(t, "5", evalOK(t, vm, "set x 5"))
	assert.Equal(t, "5", evalOK(t, vm, "set x"))
}

func TestIncr(t *testing.T) {
	vm := New()
	evalOK(t, vm, "set n 0")
	assert.Equal(t, "1", evalOK(t, vm, "incr n"))
	assert.Equal(t, "4", evalOK(t, vm, "incr n 3"))
}

func TestProcReturn(t *testing.T) {
	vm := New()
	evalOK(t, vm, "proc double {x} { expr {$x * 2} }")
	assert.Equal(t, "10", evalOK(t, vm, "double 5"))
}

func TestProcDefaultAndArgs(t *testing.T) {
	vm := New()
	evalOK(t, vm, "proc greet {name {greeting hello} args} { return \"$greeting $name $args\" }")
	assert.Equal(t, "hello world ", evalOK(t, vm, "greet world"))
	assert.Equal(t, "hi world ", evalOK(t, vm, "greet world hi"))
}

func TestIfElse(t *testing.T) {
	vm := New()
	evalOK(t, vm, "set x 3")
	assert.Equal(t, "small", evalOK(t, vm, "if {$x > 10} { set r big } elseif {$x > 5} { set r medium } else { set r small }; set r"))
}

func TestWhileBreakContinue(t *testing.T) {
	vm := New()
	evalOK(t, vm, `
		set i 0
		set sum 0
		while {$i < 10} {
			incr i
			if {$i == 5} { continue }
			if {$i > 8} { break }
			incr sum $i
		}
	`)
	assert.Equal(t, "31", evalOK(t, vm, "set sum"))
}

func TestForeachMultiList(t *testing.T) {
	vm := New()
	evalOK(t, vm, `
		set out {}
		foreach a {1 2 3} b {x y} {
			lappend out "$a$b"
		}
	`)
	assert.Equal(t, "1x 2y 3", evalOK(t, vm, "set out"))
}

func TestCatch(t *testing.T) {
	vm := New()
	assert.Equal(t, "1", evalOK(t, vm, "catch {error boom} msg"))
}

func TestTailcallNoGrowth(t *testing.T) {
	vm := New(WithRecursionLimit(50))
	evalOK(t, vm, `
		proc count {n acc} {
			if {$n <= 0} { return $acc }
			tailcall count [expr {$n - 1}] [expr {$acc + 1}]
		}
	`)
	assert.Equal(t, "1000", evalOK(t, vm, "count 1000 0"))
}

func TestListOps(t *testing.T) {
	vm := New()
	assert.Equal(t, "3", evalOK(t, vm, "llength {a b c}"))
	assert.Equal(t, "b", evalOK(t, vm, "lindex {a b c} 1"))
	assert.Equal(t, "c", evalOK(t, vm, "lindex {a b c} end"))
	assert.Equal(t, "a b c d", evalOK(t, vm, "lappend L a b c; lappend L d"))
}

func TestDictOps(t *testing.T) {
	vm := New()
	evalOK(t, vm, "dict set d a 1")
	evalOK(t, vm, "dict set d b 2")
	assert.Equal(t, "1", evalOK(t, vm, "dict get $d a"))
	assert.Equal(t, "2", evalOK(t, vm, "dict size $d"))
}

func TestUpvarGlobal(t *testing.T) {
	vm := New()
	evalOK(t, vm, "set g 1")
	evalOK(t, vm, "proc bump {} { global g; incr g }")
	evalOK(t, vm, "bump")
	assert.Equal(t, "2", evalOK(t, vm, "set g"))
}

func TestExprArith(t *testing.T) {
	vm := New()
	assert.Equal(t, "7", evalOK(t, vm, "expr {3 + 4}"))
	assert.Equal(t, "1", evalOK(t, vm, "expr {7 % 4 - 2}"))
	assert.Equal(t, "1", evalOK(t, vm, "expr {2 > 1 && 3 > 2}"))
}

func TestCmdSubst(t *testing.T) {
	vm := New()
	assert.Equal(t, "8", evalOK(t, vm, "expr {[expr {3+3}] + 2}"))
}
