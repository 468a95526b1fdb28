package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
	"github.com/thatfloflo/quahl/internal/ipc/jsonrpc"
)

func newTestRegistry(t *testing.T, methods ...Method) *Registry {
	t.Helper()
	r := NewRegistry(logging.NewNop(), nil)
	for _, m := range methods {
		if err := r.Register(m); err != nil {
			t.Fatalf("Register(%q) failed: %v", m.Name, err)
		}
	}
	return r
}

func echoMethod(name string, params ...Param) Method {
	return Method{
		Name:   name,
		Params: params,
		Handler: func(ctx context.Context, args []any) (any, error) {
			return args, nil
		},
	}
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRegistry(t, echoMethod("ping"))

	if err := r.Register(echoMethod("ping")); err == nil {
		t.Error("Duplicate registration should fail")
	}
	if err := r.Register(Method{Name: "", Handler: func(context.Context, []any) (any, error) { return nil, nil }}); err == nil {
		t.Error("Empty method name should fail")
	}
	if err := r.Register(Method{Name: "broken"}); err == nil {
		t.Error("Nil handler should fail")
	}
}

func TestDispatchMethodNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, fault := r.Dispatch(context.Background(), "missing", nil)
	if fault == nil || fault.Code != jsonrpc.CodeMethodNotFound {
		t.Errorf("Expected method-not-found fault, got %+v", fault)
	}
}

func TestDispatchBindsPositionalAndNamed(t *testing.T) {
	m := echoMethod("greet",
		Param{Name: "name", Type: TypeString},
		Param{Name: "loud", Type: TypeBool, Optional: true},
	)
	r := newTestRegistry(t, m)

	for _, params := range []string{
		`["world", true]`,
		`{"name": "world", "loud": true}`,
	} {
		result, fault := r.Dispatch(context.Background(), "greet", json.RawMessage(params))
		if fault != nil {
			t.Fatalf("Dispatch(%s) faulted: %v", params, fault)
		}
		args := result.([]any)
		if args[0] != "world" || args[1] != true {
			t.Errorf("Dispatch(%s) bound %v", params, args)
		}
	}
}

func TestDispatchOmittedOptional(t *testing.T) {
	m := echoMethod("greet",
		Param{Name: "name", Type: TypeString},
		Param{Name: "loud", Type: TypeBool, Optional: true},
	)
	r := newTestRegistry(t, m)

	result, fault := r.Dispatch(context.Background(), "greet", json.RawMessage(`["world"]`))
	if fault != nil {
		t.Fatalf("Dispatch faulted: %v", fault)
	}
	args := result.([]any)
	if args[1] != nil {
		t.Errorf("Omitted optional should bind nil, got %v", args[1])
	}
}

func TestDispatchInvalidParams(t *testing.T) {
	m := echoMethod("greet",
		Param{Name: "name", Type: TypeString},
		Param{Name: "loud", Type: TypeBool, Optional: true},
	)
	r := newTestRegistry(t, m)

	cases := map[string]string{
		"missing required":  `[]`,
		"too many":          `["a", true, "extra"]`,
		"wrong type":        `[42]`,
		"unknown named":     `{"name": "a", "volume": 11}`,
		"wrong named type":  `{"name": "a", "loud": "yes"}`,
		"missing named req": `{"loud": true}`,
	}
	for label, params := range cases {
		_, fault := r.Dispatch(context.Background(), "greet", json.RawMessage(params))
		if fault == nil || fault.Code != jsonrpc.CodeInvalidParams {
			t.Errorf("%s: expected invalid-params fault, got %+v", label, fault)
		}
	}
}

func TestDispatchNilParamsWithOnlyOptionals(t *testing.T) {
	m := echoMethod("open", Param{Name: "url", Type: TypeString, Optional: true})
	r := newTestRegistry(t, m)

	if _, fault := r.Dispatch(context.Background(), "open", nil); fault != nil {
		t.Errorf("Nil params with only optionals should bind, got %v", fault)
	}
}

func TestDispatchFaultPassthrough(t *testing.T) {
	want := InvalidParams("refused")
	r := newTestRegistry(t, Method{
		Name: "refuse",
		Handler: func(ctx context.Context, args []any) (any, error) {
			return nil, want
		},
	})

	_, fault := r.Dispatch(context.Background(), "refuse", nil)
	if fault != want {
		t.Errorf("Handler fault should pass through unchanged, got %+v", fault)
	}
}

func TestDispatchWrapsPlainErrors(t *testing.T) {
	r := newTestRegistry(t, Method{
		Name: "fail",
		Handler: func(ctx context.Context, args []any) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	})

	_, fault := r.Dispatch(context.Background(), "fail", nil)
	if fault == nil || fault.Code != jsonrpc.CodeInternalError {
		t.Errorf("Expected internal-error fault, got %+v", fault)
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	r := newTestRegistry(t, Method{
		Name: "explode",
		Handler: func(ctx context.Context, args []any) (any, error) {
			panic("boom")
		},
	})

	result, fault := r.Dispatch(context.Background(), "explode", nil)
	if fault == nil || fault.Code != jsonrpc.CodeInternalError {
		t.Errorf("Expected internal-error fault after panic, got %+v", fault)
	}
	if result != nil {
		t.Errorf("Panicked dispatch must not return a result, got %v", result)
	}
}

func TestMethodsSorted(t *testing.T) {
	r := newTestRegistry(t, echoMethod("zebra"), echoMethod("alpha"), echoMethod("mid"))
	got := r.Methods()
	want := []string{"alpha", "mid", "zebra"}
	if len(got) != len(want) {
		t.Fatalf("Methods() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Methods()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
