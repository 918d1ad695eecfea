package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseLink,
				Kind:    KindNotObject,
				Channel: "net",
				Detail:  "bridge returned int",
			},
			contains: []string{"[link]", "not_object", `"net"`, "bridge returned int"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRestore,
				Kind:  KindInvalidData,
			},
			contains: []string{"[restore]", "invalid_data"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseGuest,
				Kind:   KindInstantiation,
				Detail: "compile failed",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[guest]", "instantiation", "compile failed", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseSnapshot,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause in the chain")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:   PhaseRegistry,
		Kind:    KindCapacity,
		Channel: "foo",
	}

	if !err.Is(&Error{Phase: PhaseRegistry, Kind: KindCapacity}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseLink, Kind: KindCapacity}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseRegistry, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseRestore, KindInvalidData).
		Channel("fs").
		Value(42).
		Cause(cause).
		Detail("expected %d names, got %d", 2, 3).
		Build()

	if err.Phase != PhaseRestore {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseRestore)
	}
	if err.Kind != KindInvalidData {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidData)
	}
	if err.Channel != "fs" {
		t.Errorf("Channel = %q, want fs", err.Channel)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected 2 names, got 3" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestCapacity(t *testing.T) {
	err := Capacity("overflow", 1024)
	if err.Kind != KindCapacity {
		t.Fatalf("Kind = %v, want %v", err.Kind, KindCapacity)
	}
	if !strings.Contains(err.Detail, "1024") {
		t.Errorf("Detail = %q, should contain the limit", err.Detail)
	}
	if !IsCapacity(err) {
		t.Error("IsCapacity should report true")
	}
	if !IsCapacity(fmt.Errorf("wrapped: %w", err)) {
		t.Error("IsCapacity should see through wrapping")
	}
	if IsCapacity(InvalidInput(PhaseRegistry, "x")) {
		t.Error("IsCapacity should be false for other kinds")
	}
	if IsCapacity(nil) {
		t.Error("IsCapacity(nil) should be false")
	}
}

func TestRecovered(t *testing.T) {
	root := errors.New("boom")
	err := Recovered(PhasePublish, "net", root)
	if !errors.Is(err, root) {
		t.Error("recovered error values should be kept as cause")
	}

	err = Recovered(PhaseLink, "net", "plain string")
	if err.Cause == nil || err.Cause.Error() != "plain string" {
		t.Errorf("Cause = %v, want plain string", err.Cause)
	}
	if err.Kind != KindCallbackFailed {
		t.Errorf("Kind = %v, want %v", err.Kind, KindCallbackFailed)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseRegistry, 2000, 1024)
		if err.Kind != KindOutOfBounds || err.Value != 2000 {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("NotObject", func(t *testing.T) {
		err := NotObject("net", 7)
		if err.Kind != KindNotObject || !strings.Contains(err.Detail, "int") {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("NotCallable", func(t *testing.T) {
		err := NotCallable("net", "publish")
		if err.Kind != KindNotCallable || err.Phase != PhasePublish {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("Guest", func(t *testing.T) {
		cause := errors.New("trap")
		err := Guest(KindInstantiation, "instantiate", cause)
		if err.Phase != PhaseGuest || !errors.Is(err, cause) {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("State", func(t *testing.T) {
		err := State(PhaseRealm, "closed")
		if err.Kind != KindState {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("io")
		err := Wrap(PhaseConfig, KindInvalidData, cause, "read config")
		if !errors.Is(err, cause) || err.Detail != "read config" {
			t.Errorf("got %+v", err)
		}
	})
}
