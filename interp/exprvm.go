package interp

import (
	"math"
	"strings"
)

// EvalExprProgram runs a compiled expr program on a small stack machine
// (§4.5). cf supplies variable scope and command-substitution context.
func (i *Interp) EvalExprProgram(cf *CallFrame, prog *ExprProgram) (*Value, error) {
	var stack []*Value
	push := func(v *Value) { stack = append(stack, v) }
	pop := func() *Value {
		n := len(stack) - 1
		v := stack[n]
		stack = stack[:n]
		return v
	}

	for pc := 0; pc < len(prog.instrs); pc++ {
		in := prog.instrs[pc]
		switch in.Op {
		case eoPush:
			push(in.Val)

		case eoLoadVar:
			v, err := i.GetVar(cf, in.Name)
			if err != nil {
				return nil, err
			}
			push(v)

		case eoLoadCmd:
			v, err := i.evalSubstScript(cf, in.Name)
			if err != nil {
				return nil, err
			}
			push(v)

		case eoUnary:
			a := pop()
			v, err := evalUnary(in.Kind, a)
			if err != nil {
				return nil, err
			}
			push(v)

		case eoBinary:
			b := pop()
			a := pop()
			v, err := evalBinary(in.Kind, a, b)
			if err != nil {
				return nil, err
			}
			push(v)

		case eoDup:
			push(stack[len(stack)-1])

		case eoPop:
			pop()

		case eoToBool:
			a := pop()
			b, err := AsBool(a)
			if err != nil {
				return nil, err
			}
			push(boolValue(b))

		case eoJumpIfFalse:
			a := pop()
			b, err := AsBool(a)
			if err != nil {
				return nil, err
			}
			if !b {
				pc = in.Target - 1
			}

		case eoJumpIfTrue:
			a := pop()
			b, err := AsBool(a)
			if err != nil {
				return nil, err
			}
			if b {
				pc = in.Target - 1
			}

		case eoJump:
			pc = in.Target - 1

		case eoCall:
			args := make([]*Value, in.Argc)
			for k := in.Argc - 1; k >= 0; k-- {
				args[k] = pop()
			}
			v, err := callMathFunc(in.Name, args)
			if err != nil {
				return nil, err
			}
			push(v)
		}
	}

	if len(stack) != 1 {
		panicInternal("expr program left %d values on the stack, want 1", len(stack))
	}
	return stack[0], nil
}

// evalSubstScript evaluates a bracketed command-substitution body found
// inside an expr string.
func (i *Interp) evalSubstScript(cf *CallFrame, src string) (*Value, error) {
	return i.evalScriptSource(cf, src, "expr")
}

func boolValue(b bool) *Value {
	if b {
		return NewRep(IntRep(1))
	}
	return NewRep(IntRep(0))
}

// isIntRep reports whether v is an integer operand: any value that is not
// already a double and shimmers to an integer.
func isIntRep(v *Value) (int64, bool) {
	if _, ok := v.Rep().(DoubleRep); ok {
		return 0, false
	}
	n, err := AsInt(v)
	return n, err == nil
}

// numOperands classifies a and b for numeric promotion (§4.4): if either is
// (or shimmers to) a double, both are compared/combined as doubles.
func numOperands(a, b *Value) (af, bf float64, isDouble bool, err error) {
	_, aInt := isIntRep(a)
	_, bInt := isIntRep(b)
	if aInt && bInt {
		ai, _ := AsInt(a)
		bi, _ := AsInt(b)
		return float64(ai), float64(bi), false, nil
	}
	af, err = AsDouble(a)
	if err != nil {
		return 0, 0, false, err
	}
	bf, err = AsDouble(b)
	if err != nil {
		return 0, 0, false, err
	}
	return af, bf, true, nil
}

func evalUnary(op OpKind, a *Value) (*Value, error) {
	switch op {
	case OpUnaryMinus:
		if n, err := AsInt(a); err == nil {
			return NewRep(IntRep(-n)), nil
		}
		f, err := AsDouble(a)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(-f)), nil
	case OpUnaryPlus:
		return a, nil
	case OpNot:
		b, err := AsBool(a)
		if err != nil {
			return nil, err
		}
		return boolValue(!b), nil
	case OpBitNot:
		n, err := AsInt(a)
		if err != nil {
			return nil, err
		}
		return NewRep(IntRep(^n)), nil
	}
	panicInternal("unhandled unary op %v", op)
	return nil, nil
}

func evalBinary(op OpKind, a, b *Value) (*Value, error) {
	switch op {
	case OpAdd, OpSub, OpMul:
		return arith(op, a, b)
	case OpDiv:
		return divide(a, b)
	case OpMod:
		return modulo(a, b)
	case OpPow:
		return power(a, b)
	case OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr:
		return bitwise(op, a, b)
	case OpLt, OpLe, OpGt, OpGe:
		return compareNum(op, a, b)
	case OpEq, OpNe:
		return compareEq(op, a, b)
	case OpStrEq, OpStrNe:
		eq := a.String() == b.String()
		if op == OpStrNe {
			eq = !eq
		}
		return boolValue(eq), nil
	case OpIn, OpNi:
		items, err := AsList(b)
		if err != nil {
			return nil, err
		}
		found := false
		for _, it := range items {
			if it.String() == a.String() {
				found = true
				break
			}
		}
		if op == OpNi {
			found = !found
		}
		return boolValue(found), nil
	}
	panicInternal("unhandled binary op %v", op)
	return nil, nil
}

func arith(op OpKind, a, b *Value) (*Value, error) {
	af, bf, isDouble, err := numOperands(a, b)
	if err != nil {
		return nil, err
	}
	if !isDouble {
		ai, bi := int64(af), int64(bf)
		switch op {
		case OpAdd:
			return NewRep(IntRep(ai + bi)), nil
		case OpSub:
			return NewRep(IntRep(ai - bi)), nil
		case OpMul:
			return NewRep(IntRep(ai * bi)), nil
		}
	}
	switch op {
	case OpAdd:
		return NewRep(DoubleRep(af + bf)), nil
	case OpSub:
		return NewRep(DoubleRep(af - bf)), nil
	case OpMul:
		return NewRep(DoubleRep(af * bf)), nil
	}
	panicInternal("unhandled arith op %v", op)
	return nil, nil
}

// divide implements Tcl's floor-division rule for two integers: the
// quotient rounds toward negative infinity, not toward zero (§4.4, §8
// numeric-edge-case invariants).
func divide(a, b *Value) (*Value, error) {
	_, aInt := isIntRep(a)
	_, bInt := isIntRep(b)
	if aInt && bInt {
		ai, _ := AsInt(a)
		bi, _ := AsInt(b)
		if bi == 0 {
			return nil, NewError("divide by zero")
		}
		q := ai / bi
		if (ai%bi != 0) && ((ai < 0) != (bi < 0)) {
			q--
		}
		return NewRep(IntRep(q)), nil
	}
	af, err := AsDouble(a)
	if err != nil {
		return nil, err
	}
	bf, err := AsDouble(b)
	if err != nil {
		return nil, err
	}
	if bf == 0 {
		return nil, NewError("divide by zero")
	}
	return NewRep(DoubleRep(af / bf)), nil
}

// modulo implements Tcl's floored-modulo rule: the result has the same
// sign as the divisor.
func modulo(a, b *Value) (*Value, error) {
	ai, err := AsInt(a)
	if err != nil {
		return nil, err
	}
	bi, err := AsInt(b)
	if err != nil {
		return nil, err
	}
	if bi == 0 {
		return nil, NewError("divide by zero")
	}
	m := ai % bi
	if m != 0 && (m < 0) != (bi < 0) {
		m += bi
	}
	return NewRep(IntRep(m)), nil
}

func power(a, b *Value) (*Value, error) {
	_, aInt := isIntRep(a)
	bi, bInt := isIntRep(b)
	if aInt && bInt && bi >= 0 {
		ai, _ := AsInt(a)
		var r int64 = 1
		for k := int64(0); k < bi; k++ {
			r *= ai
		}
		return NewRep(IntRep(r)), nil
	}
	af, err := AsDouble(a)
	if err != nil {
		return nil, err
	}
	bf, err := AsDouble(b)
	if err != nil {
		return nil, err
	}
	return NewRep(DoubleRep(math.Pow(af, bf))), nil
}

func bitwise(op OpKind, a, b *Value) (*Value, error) {
	ai, err := AsInt(a)
	if err != nil {
		return nil, err
	}
	bi, err := AsInt(b)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpBitAnd:
		return NewRep(IntRep(ai & bi)), nil
	case OpBitOr:
		return NewRep(IntRep(ai | bi)), nil
	case OpBitXor:
		return NewRep(IntRep(ai ^ bi)), nil
	case OpShl:
		return NewRep(IntRep(ai << uint(bi))), nil
	case OpShr:
		return NewRep(IntRep(ai >> uint(bi))), nil
	}
	panicInternal("unhandled bitwise op %v", op)
	return nil, nil
}

func compareNum(op OpKind, a, b *Value) (*Value, error) {
	// Numeric comparison falls back to a string comparison when either
	// side doesn't parse as a number (§4.4: "eq/ne for strings, </<=/>/>=
	// on numbers when both sides are numeric, else lexical").
	af, bf, _, err := numOperands(a, b)
	if err != nil {
		r := strings.Compare(a.String(), b.String())
		switch op {
		case OpLt:
			return boolValue(r < 0), nil
		case OpLe:
			return boolValue(r <= 0), nil
		case OpGt:
			return boolValue(r > 0), nil
		case OpGe:
			return boolValue(r >= 0), nil
		}
	}
	switch op {
	case OpLt:
		return boolValue(af < bf), nil
	case OpLe:
		return boolValue(af <= bf), nil
	case OpGt:
		return boolValue(af > bf), nil
	case OpGe:
		return boolValue(af >= bf), nil
	}
	panicInternal("unhandled compare op %v", op)
	return nil, nil
}

func compareEq(op OpKind, a, b *Value) (*Value, error) {
	af, bf, _, err := numOperands(a, b)
	var eq bool
	if err != nil {
		eq = a.String() == b.String()
	} else {
		eq = af == bf
	}
	if op == OpNe {
		eq = !eq
	}
	return boolValue(eq), nil
}

// callMathFunc implements expr's built-in math functions (§4.4).
func callMathFunc(name string, args []*Value) (*Value, error) {
	arg := func(k int) (float64, error) { return AsDouble(args[k]) }
	switch name {
	case "abs":
		if n, ok := isIntRep(args[0]); ok {
			if n < 0 {
				n = -n
			}
			return NewRep(IntRep(n)), nil
		}
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(math.Abs(f))), nil
	case "sqrt":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(math.Sqrt(f))), nil
	case "sin":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(math.Sin(f))), nil
	case "cos":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(math.Cos(f))), nil
	case "tan":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(math.Tan(f))), nil
	case "log":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(math.Log(f))), nil
	case "exp":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(math.Exp(f))), nil
	case "floor":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(math.Floor(f))), nil
	case "ceil":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(math.Ceil(f))), nil
	case "round":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(IntRep(int64(math.Round(f)))), nil
	case "int":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(IntRep(int64(f))), nil
	case "double":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(f)), nil
	case "pow":
		a, err := arg(0)
		if err != nil {
			return nil, err
		}
		b, err := arg(1)
		if err != nil {
			return nil, err
		}
		return NewRep(DoubleRep(math.Pow(a, b))), nil
	case "min", "max":
		a, err := arg(0)
		if err != nil {
			return nil, err
		}
		b, err := arg(1)
		if err != nil {
			return nil, err
		}
		if (name == "min") == (a < b) {
			return args[0], nil
		}
		return args[1], nil
	}
	return nil, NewError("unknown math function %q", name)
}
