package protocol

import "testing"

func TestDecodeBase(t *testing.T) {
	m, err := DecodeBase([]byte(`{"type":"CMD","protocol_version":"0.1","kind":"START"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != TypeCmd || m.ProtocolVersion != Version {
		t.Fatalf("unexpected base: %+v", m)
	}
	if _, err := DecodeBase([]byte(`not json`)); err == nil {
		t.Fatalf("expected error on bad json")
	}
}
