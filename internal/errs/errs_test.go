package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

var allCodes = []Code{
	InvalidArgument,
	NotFound,
	FailedPrecondition,
	Unavailable,
	DeadlineExceeded,
	Internal,
}

func testCodeOf_RoundtripForTypedErrors(t *rapid.T) {
	code := rapid.SampledFrom(allCodes).Draw(t, "code")
	message := rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "message")

	err := New(code, message)
	if got := CodeOf(err); got != code {
		t.Fatalf("CodeOf(New) mismatch: got=%q want=%q", got, code)
	}
	if got := MessageOf(err); got != message {
		t.Fatalf("MessageOf(New) mismatch: got=%q want=%q", got, message)
	}
	if got := err.Error(); got != message {
		t.Fatalf("Error() mismatch: got=%q want=%q", got, message)
	}
}

func TestCodeOf_RoundtripForTypedErrors(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCodeOf_RoundtripForTypedErrors)
}

func testCodeOfAndMessageOf_WrappedTypedError(t *rapid.T) {
	code := rapid.SampledFrom(allCodes).Draw(t, "code")
	message := rapid.StringMatching(`[a-zA-Z0-9 _\-]{1,80}`).Draw(t, "message")
	cause := errors.New(rapid.StringMatching(`[a-zA-Z0-9 _\-]{1,80}`).Draw(t, "cause"))

	err := Wrap(code, message, cause)
	wrapped := fmt.Errorf("outer: %w", err)

	if got := CodeOf(wrapped); got != code {
		t.Fatalf("CodeOf(wrapped) mismatch: got=%q want=%q", got, code)
	}
	if got := MessageOf(wrapped); got != message {
		t.Fatalf("MessageOf(wrapped) mismatch: got=%q want=%q", got, message)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("errors.Is lost the cause through Wrap")
	}
	if got, want := err.Error(), message+": "+cause.Error(); got != want {
		t.Fatalf("Error() mismatch: got=%q want=%q", got, want)
	}
}

func TestCodeOfAndMessageOf_WrappedTypedError(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCodeOfAndMessageOf_WrappedTypedError)
}

func testUntypedAndNilFallbacks(t *rapid.T) {
	raw := rapid.StringMatching(`[a-zA-Z0-9 _:\-./]{1,80}`).Draw(t, "raw")
	untyped := errors.New(raw)

	if got := CodeOf(untyped); got != Internal {
		t.Fatalf("CodeOf(untyped) mismatch: got=%q want=%q", got, Internal)
	}
	if got := MessageOf(untyped); got != "internal error" {
		t.Fatalf("MessageOf(untyped) mismatch: got=%q want=%q", got, "internal error")
	}
	if got := CodeOf(nil); got != Internal {
		t.Fatalf("CodeOf(nil) mismatch: got=%q want=%q", got, Internal)
	}
	if got := MessageOf(nil); got != string(Internal) {
		t.Fatalf("MessageOf(nil) mismatch: got=%q want=%q", got, Internal)
	}
}

func TestUntypedAndNilFallbacks(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testUntypedAndNilFallbacks)
}

func TestCodeOf_ContextDeadline(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("waiting for header: %w", context.DeadlineExceeded)
	if got := CodeOf(err); got != DeadlineExceeded {
		t.Fatalf("CodeOf(deadline) = %q, want %q", got, DeadlineExceeded)
	}
	// An explicit code wins over the wrapped deadline.
	coded := Wrap(NotFound, "header missing", context.DeadlineExceeded)
	if got := CodeOf(coded); got != NotFound {
		t.Fatalf("CodeOf(coded deadline) = %q, want %q", got, NotFound)
	}
}

func testExitCode_Mapping(t *rapid.T) {
	cases := map[Code]int{
		InvalidArgument:    2,
		NotFound:           3,
		FailedPrecondition: 3,
		Unavailable:        4,
		DeadlineExceeded:   5,
		Internal:           1,
	}

	code := rapid.SampledFrom(append(allCodes, Code("unknown_code"))).Draw(t, "code")

	want := 1
	if mapped, ok := cases[code]; ok {
		want = mapped
	}
	if got := ExitCode(New(code, "x")); got != want {
		t.Fatalf("ExitCode mismatch: code=%q got=%d want=%d", code, got, want)
	}
}

func TestExitCode_Mapping(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testExitCode_Mapping)
	if got := ExitCode(nil); got != 0 {
		t.Fatalf("ExitCode(nil) = %d, want 0", got)
	}
}
