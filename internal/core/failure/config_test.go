package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

var (
	errTransient = errors.New("transient")
	errExpected  = errors.New("expected")
)

func TestClassification(t *testing.T) {
	c := NewConfig()
	c.Update(ConfigUpdate{
		NonFatal:        []error{errTransient},
		DefaultNonFatal: []error{errExpected},
	})

	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{name: "nil", err: nil, fatal: false},
		{name: "configured", err: errTransient, fatal: false},
		{name: "default", err: errExpected, fatal: false},
		{name: "wrapped", err: fmt.Errorf("load: %w", errTransient), fatal: false},
		{name: "unknown", err: errors.New("boom"), fatal: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsFatal(tt.err); got != tt.fatal {
				t.Fatalf("IsFatal = %v, want %v", got, tt.fatal)
			}
			if got := c.IsNonFatal(tt.err); got == tt.fatal {
				t.Fatalf("IsNonFatal = %v, want %v", got, !tt.fatal)
			}
		})
	}
}

func TestHandleRunsHookOnlyForFatal(t *testing.T) {
	c := NewConfig()
	var calls []error
	c.Update(ConfigUpdate{
		NonFatal: []error{errTransient},
		OnRaisedError: func(_ context.Context, subject any, err error) error {
			if subject != "subject" {
				t.Fatalf("unexpected subject %v", subject)
			}
			calls = append(calls, err)
			return nil
		},
	})

	if c.Handle(context.Background(), "subject", errTransient) {
		t.Fatal("non-fatal error reported as fatal")
	}
	boom := errors.New("boom")
	if !c.Handle(context.Background(), "subject", boom) {
		t.Fatal("fatal error not reported")
	}
	if len(calls) != 1 || calls[0] != boom {
		t.Fatalf("unexpected hook calls %v", calls)
	}
}

func TestHookFailuresAreSwallowed(t *testing.T) {
	c := NewConfig()
	c.Update(ConfigUpdate{OnRaisedError: func(context.Context, any, error) error {
		return errors.New("hook failed")
	}})
	c.RunRaisedErrorHook(context.Background(), nil, errors.New("boom"))

	c.Update(ConfigUpdate{OnRaisedError: func(context.Context, any, error) error {
		panic("hook panicked")
	}})
	c.RunRaisedErrorHook(context.Background(), nil, errors.New("boom"))
}

func TestUpdateAndReset(t *testing.T) {
	c := NewConfig()
	if !c.AllowRaiseOnFailure() {
		t.Fatal("expected raise on failure by default")
	}
	off := false
	snap := c.Update(ConfigUpdate{
		AllowRaiseOnFailure: &off,
		NonFatal:            []error{errTransient, nil, errTransient},
	})
	if snap.AllowRaiseOnFailure || len(snap.NonFatal) != 1 {
		t.Fatalf("unexpected snapshot %s", snap)
	}

	c.Update(ConfigUpdate{})
	if c.AllowRaiseOnFailure() {
		t.Fatal("empty update must not change values")
	}

	c.Reset()
	snap = c.Snapshot()
	if !snap.AllowRaiseOnFailure || len(snap.NonFatal) != 0 || len(snap.DefaultNonFatal) != 0 {
		t.Fatalf("unexpected snapshot after reset %s", snap)
	}
	if !c.IsFatal(errTransient) {
		t.Fatal("reset must drop non-fatal errors")
	}
}
