package jsi

import (
	"fmt"
	"strings"
	"testing"
)

// mapHostObject backs a JS object with a native map.
type mapHostObject struct {
	props map[string]float64
	order []string
	fail  bool

	// depositOnSet rejects writes through the error slot instead of the
	// return value.
	depositOnSet bool
}

func newMapHostObject() *mapHostObject {
	return &mapHostObject{props: map[string]float64{}}
}

func (m *mapHostObject) Get(rt Runtime, name PropertyID) (Value, error) {
	key, err := rt.PropertyIDToString(name)
	if err != nil {
		return Undefined(), err
	}
	if m.fail {
		return Undefined(), NewNativeError("host refused %q", key)
	}
	v, ok := m.props[key]
	if !ok {
		return Undefined(), nil
	}
	return Number(v), nil
}

func (m *mapHostObject) Set(rt Runtime, name PropertyID, value Value) error {
	key, err := rt.PropertyIDToString(name)
	if err != nil {
		return err
	}
	if m.depositOnSet {
		rt.SetError(NativeException, "write rejected: "+key, Undefined())
		return nil
	}
	if value.Kind() != KindNumber {
		return fmt.Errorf("only numbers are stored, got %v", value.Kind())
	}
	if _, ok := m.props[key]; !ok {
		m.order = append(m.order, key)
	}
	m.props[key] = value.Number()
	return nil
}

func (m *mapHostObject) PropertyIDs(rt Runtime) []PropertyID {
	ids := make([]PropertyID, 0, len(m.order))
	for _, key := range m.order {
		id, err := rt.CreatePropertyID(key)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func TestHostObjectRoundTrip(t *testing.T) {
	rt := newTestRuntime(t)

	impl := newMapHostObject()
	obj, err := rt.CreateObjectWithHostObject(impl)
	if err != nil {
		t.Fatalf("CreateObjectWithHostObject: %v", err)
	}

	if !rt.IsHostObject(obj) {
		t.Fatal("host object fails IsHostObject")
	}
	if got := rt.GetHostObject(obj); got != HostObject(impl) {
		t.Fatal("GetHostObject returned a different implementation")
	}

	plain, _ := rt.CreateObject()
	if rt.IsHostObject(plain) {
		t.Fatal("plain object passes IsHostObject")
	}
	if rt.GetHostObject(plain) != nil {
		t.Fatal("GetHostObject on plain object is non-nil")
	}
}

func TestHostObjectFromJS(t *testing.T) {
	rt := newTestRuntime(t)

	impl := newMapHostObject()
	impl.props["seed"] = 5
	impl.order = append(impl.order, "seed")

	obj, err := rt.CreateObjectWithHostObject(impl)
	if err != nil {
		t.Fatalf("CreateObjectWithHostObject: %v", err)
	}
	global := rt.Global()
	p, _ := rt.CreatePropertyID("native")
	if err := rt.SetProperty(global, p, FromObject(obj)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}

	v, err := rt.EvaluateJavaScript(StringSource("native.seed + 1"), "read.js")
	if err != nil {
		t.Fatalf("reading host property: %v", err)
	}
	if v.Number() != 6 {
		t.Fatalf("seed + 1 = %v", v.Number())
	}

	if _, err := rt.EvaluateJavaScript(StringSource("native.written = 9"), "write.js"); err != nil {
		t.Fatalf("writing host property: %v", err)
	}
	if impl.props["written"] != 9 {
		t.Fatalf("host did not observe write: %v", impl.props)
	}

	keys, err := rt.EvaluateJavaScript(StringSource(`Object.keys(native).join(",")`), "keys.js")
	if err != nil {
		t.Fatalf("enumerating host object: %v", err)
	}
	got, _ := rt.StringToString(keys.String())
	if got != "seed,written" {
		t.Fatalf("keys = %q", got)
	}
}

func TestHostObjectErrorBecomesThrow(t *testing.T) {
	rt := newTestRuntime(t)

	impl := newMapHostObject()
	impl.fail = true
	obj, err := rt.CreateObjectWithHostObject(impl)
	if err != nil {
		t.Fatalf("CreateObjectWithHostObject: %v", err)
	}
	global := rt.Global()
	p, _ := rt.CreatePropertyID("native")
	if err := rt.SetProperty(global, p, FromObject(obj)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}

	v, err := rt.EvaluateJavaScript(StringSource(`
		var caught = "";
		try { native.anything; } catch (e) { caught = String(e); }
		caught
	`), "catch.js")
	if err != nil {
		t.Fatalf("EvaluateJavaScript: %v", err)
	}
	got, _ := rt.StringToString(v.String())
	if !strings.Contains(got, "refused") {
		t.Fatalf("caught = %q, want host error text", got)
	}
}

func TestHostObjectSetErrorSlotBecomesThrow(t *testing.T) {
	rt := newTestRuntime(t)

	impl := newMapHostObject()
	impl.depositOnSet = true
	obj, err := rt.CreateObjectWithHostObject(impl)
	if err != nil {
		t.Fatalf("CreateObjectWithHostObject: %v", err)
	}
	global := rt.Global()
	p, _ := rt.CreatePropertyID("native")
	if err := rt.SetProperty(global, p, FromObject(obj)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}

	v, err := rt.EvaluateJavaScript(StringSource(`
		var caught = "";
		try { native.blocked = 7; } catch (e) { caught = String(e); }
		caught
	`), "setcatch.js")
	if err != nil {
		t.Fatalf("EvaluateJavaScript: %v", err)
	}
	got, _ := rt.StringToString(v.String())
	if !strings.Contains(got, "write rejected") {
		t.Fatalf("caught = %q, want deposited error text", got)
	}
	if _, ok := impl.props["blocked"]; ok {
		t.Fatal("rejected write reached the backing map")
	}
	if e := rt.GetAndClearError(); e != nil {
		t.Fatalf("slot not drained by the throw: %+v", e)
	}
}

func TestHostFunction(t *testing.T) {
	rt := newTestRuntime(t)

	fn, err := rt.CreateFunctionFromHostFunction("sum", 2, func(rt Runtime, this Value, args []Value) (Value, error) {
		total := 0.0
		for _, a := range args {
			if a.Kind() != KindNumber {
				return Undefined(), fmt.Errorf("argument is not a number")
			}
			total += a.Number()
		}
		return Number(total), nil
	})
	if err != nil {
		t.Fatalf("CreateFunctionFromHostFunction: %v", err)
	}

	if !rt.IsHostFunction(fn) {
		t.Fatal("host function fails IsHostFunction")
	}
	if rt.GetHostFunction(fn) == nil {
		t.Fatal("GetHostFunction is nil")
	}
	if !rt.IsFunction(fn) {
		t.Fatal("host function fails IsFunction")
	}
	plain, _ := rt.CreateObject()
	if rt.IsHostFunction(plain) {
		t.Fatal("plain object passes IsHostFunction")
	}

	// Callable from native code.
	out, err := rt.Call(fn, Undefined(), []Value{Number(1), Number(2), Number(3)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out.Number() != 6 {
		t.Fatalf("sum = %v", out.Number())
	}

	// Callable from JS, with the declared name and arity visible.
	global := rt.Global()
	p, _ := rt.CreatePropertyID("sum")
	if err := rt.SetProperty(global, p, FromObject(fn)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	v, err := rt.EvaluateJavaScript(StringSource("sum(40, 2)"), "call.js")
	if err != nil {
		t.Fatalf("calling from JS: %v", err)
	}
	if v.Number() != 42 {
		t.Fatalf("sum(40, 2) = %v", v.Number())
	}
	meta, err := rt.EvaluateJavaScript(StringSource(`sum.name + "/" + sum.length`), "meta.js")
	if err != nil {
		t.Fatalf("reading metadata: %v", err)
	}
	got, _ := rt.StringToString(meta.String())
	if got != "sum/2" {
		t.Fatalf("name/length = %q", got)
	}
}

func TestHostFunctionReentrancy(t *testing.T) {
	rt := newTestRuntime(t)

	fn, err := rt.CreateFunctionFromHostFunction("viaEval", 0, func(rt Runtime, this Value, args []Value) (Value, error) {
		// Re-enter the runtime on the same call stack.
		return rt.EvaluateJavaScript(StringSource("21 * 2"), "nested.js")
	})
	if err != nil {
		t.Fatalf("CreateFunctionFromHostFunction: %v", err)
	}
	global := rt.Global()
	p, _ := rt.CreatePropertyID("viaEval")
	if err := rt.SetProperty(global, p, FromObject(fn)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}

	v, err := rt.EvaluateJavaScript(StringSource("viaEval()"), "outer.js")
	if err != nil {
		t.Fatalf("re-entrant call: %v", err)
	}
	if v.Number() != 42 {
		t.Fatalf("result = %v", v.Number())
	}
}

func TestHostFunctionErrorCaughtByJS(t *testing.T) {
	rt := newTestRuntime(t)

	fn, err := rt.CreateFunctionFromHostFunction("explode", 0, func(rt Runtime, this Value, args []Value) (Value, error) {
		return Undefined(), NewNativeError("kaboom")
	})
	if err != nil {
		t.Fatalf("CreateFunctionFromHostFunction: %v", err)
	}
	global := rt.Global()
	p, _ := rt.CreatePropertyID("explode")
	if err := rt.SetProperty(global, p, FromObject(fn)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}

	v, err := rt.EvaluateJavaScript(StringSource(`
		var caught = "";
		try { explode(); } catch (e) { caught = String(e); }
		caught
	`), "catch.js")
	if err != nil {
		t.Fatalf("EvaluateJavaScript: %v", err)
	}
	got, _ := rt.StringToString(v.String())
	if !strings.Contains(got, "kaboom") {
		t.Fatalf("caught = %q", got)
	}
}

func TestHostFunctionErrorSlotSentinel(t *testing.T) {
	rt := newTestRuntime(t)

	fn, err := rt.CreateFunctionFromHostFunction("deposit", 0, func(rt Runtime, this Value, args []Value) (Value, error) {
		// Deposit into the slot and signal failure with the sentinel.
		rt.SetError(NativeException, "deposited failure", Undefined())
		return Undefined(), nil
	})
	if err != nil {
		t.Fatalf("CreateFunctionFromHostFunction: %v", err)
	}
	global := rt.Global()
	p, _ := rt.CreatePropertyID("deposit")
	if err := rt.SetProperty(global, p, FromObject(fn)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}

	v, err := rt.EvaluateJavaScript(StringSource(`
		var caught = "";
		try { deposit(); } catch (e) { caught = String(e); }
		caught
	`), "catch.js")
	if err != nil {
		t.Fatalf("EvaluateJavaScript: %v", err)
	}
	got, _ := rt.StringToString(v.String())
	if !strings.Contains(got, "deposited failure") {
		t.Fatalf("caught = %q", got)
	}
	if rt.GetAndClearError() != nil {
		t.Fatal("slot still pending after the throw was caught by JS")
	}
}

func TestHostFunctionRethrowsJSValue(t *testing.T) {
	rt := newTestRuntime(t)

	fn, err := rt.CreateFunctionFromHostFunction("passthrough", 1, func(rt Runtime, this Value, args []Value) (Value, error) {
		// Call the JS function argument and propagate its throw untouched.
		if len(args) == 0 || args[0].Kind() != KindObject {
			return Undefined(), NewNativeError("expected a function argument")
		}
		return rt.Call(args[0].Object(), Undefined(), nil)
	})
	if err != nil {
		t.Fatalf("CreateFunctionFromHostFunction: %v", err)
	}
	global := rt.Global()
	p, _ := rt.CreatePropertyID("passthrough")
	if err := rt.SetProperty(global, p, FromObject(fn)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}

	v, err := rt.EvaluateJavaScript(StringSource(`
		var marker = new Error("original");
		var caught = null;
		try {
			passthrough(function() { throw marker; });
		} catch (e) {
			caught = e;
		}
		caught === marker
	`), "rethrow.js")
	if err != nil {
		t.Fatalf("EvaluateJavaScript: %v", err)
	}
	if v.Kind() != KindBoolean || !v.Bool() {
		t.Fatal("rethrown error lost its identity crossing the host boundary")
	}
	rt.GetAndClearError()
}
