package errors

import (
	"fmt"
	"net/http"
	"testing"
)

type statusErr struct{ status int }

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", s.status) }
func (s statusErr) StatusCode() int { return s.status }

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestAsAndIsCodeThroughWrapping(t *testing.T) {
	base := New(CodeCapacityExceeded, "Only 3 portions available")
	wrapped := fmt.Errorf("add item: %w", base)

	if !IsCode(wrapped, CodeCapacityExceeded) {
		t.Fatalf("expected capacity code in chain")
	}
	if IsCode(wrapped, CodeGateway) {
		t.Fatalf("did not expect gateway code")
	}
	if got := MessageOf(wrapped); got != "Only 3 portions available" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := MessageOf(fmt.Errorf("plain")); got != "plain" {
		t.Fatalf("unexpected plain message %q", got)
	}
}

func TestDumpCapturesStatusAndChain(t *testing.T) {
	err := Wrap(CodeGateway, statusErr{status: http.StatusBadGateway}, "Failed to fetch orders")
	dump := Dump(err)
	if dump.Code != CodeGateway {
		t.Fatalf("unexpected code %q", dump.Code)
	}
	if dump.HTTPStatus != http.StatusBadGateway {
		t.Fatalf("unexpected status %d", dump.HTTPStatus)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(dump.Chain))
	}
}

type upstreamErr struct{ op, rid string }

func (u upstreamErr) Error() string                  { return u.op + " failed" }
func (u upstreamErr) UpstreamCall() (string, string) { return u.op, u.rid }

func TestDumpCapturesUpstreamCall(t *testing.T) {
	err := Wrap(CodeStaleReference, fmt.Errorf("cancel: %w", upstreamErr{op: "cancel_order", rid: "req-9"}), "order 4 no longer exists")
	dump := Dump(err)
	if dump.UpstreamOperation != "cancel_order" || dump.UpstreamRequestID != "req-9" {
		t.Fatalf("unexpected upstream fields %+v", dump)
	}
	if dump.HTTPStatus != 0 {
		t.Fatalf("expected no status, got %d", dump.HTTPStatus)
	}
}
