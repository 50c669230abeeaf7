package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrWorldBusy,
		ErrWorldDenied,
		ErrBadRequest,
		ErrNoPermission,
		ErrNoResource,
		ErrInvalidTarget,
		ErrRateLimit,
		ErrConflict,
		ErrBlocked,
		ErrNotFound,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := DecodeBase([]byte(`{"type":"CMD","protocol_version":"1.0","op":"PLACE"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != TypeCmd || m.ProtocolVersion != Version {
		t.Fatalf("base=%+v", m)
	}
	if _, err := DecodeBase([]byte(`{`)); err == nil {
		t.Fatalf("expected error on truncated json")
	}
}
