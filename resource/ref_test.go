package resource

import "testing"

func TestRef(t *testing.T) {
	var r Ref[string]
	if !r.IsEmpty() {
		t.Fatal("zero Ref should be empty")
	}
	if _, ok := r.Get(); ok {
		t.Fatal("zero Ref should not yield a value")
	}

	r.Reset("obj")
	if r.IsEmpty() {
		t.Fatal("Ref should be set after Reset")
	}
	if v, ok := r.Get(); !ok || v != "obj" {
		t.Fatalf("Get() = %q, %v", v, ok)
	}

	r.Clear()
	if !r.IsEmpty() {
		t.Fatal("Ref should be empty after Clear")
	}
	if v, _ := r.Get(); v != "" {
		t.Fatal("Clear should drop the referenced value")
	}
}

func TestRef_ZeroValuePayload(t *testing.T) {
	var r Ref[any]
	r.Reset(nil)
	if r.IsEmpty() {
		t.Fatal("the valid flag, not the payload, decides presence")
	}
}
