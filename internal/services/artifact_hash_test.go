package services

import (
	"encoding/json"
	"testing"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/blobstore"
)

func TestCanonicalPayloadKeyOrderIndependent(t *testing.T) {
	var a, b map[string]any
	if err := json.Unmarshal([]byte(`{"x":1,"y":"z","nested":{"b":2,"a":1}}`), &a); err != nil {
		t.Fatalf("unmarshal a: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"nested":{"a":1,"b":2},"y":"z","x":1}`), &b); err != nil {
		t.Fatalf("unmarshal b: %v", err)
	}

	ca, err := canonicalPayload(a)
	if err != nil {
		t.Fatalf("canonicalPayload a: %v", err)
	}
	cb, err := canonicalPayload(b)
	if err != nil {
		t.Fatalf("canonicalPayload b: %v", err)
	}
	if string(ca) != string(cb) {
		t.Fatalf("canonical form differs:\n%s\n%s", ca, cb)
	}
	if blobstore.HashPayload(ca) != blobstore.HashPayload(cb) {
		t.Fatal("content hash differs for equal payloads")
	}
}

func TestCanonicalPayloadNil(t *testing.T) {
	c, err := canonicalPayload(nil)
	if err != nil {
		t.Fatalf("canonicalPayload nil: %v", err)
	}
	if string(c) != "{}" {
		t.Fatalf("nil payload canonical form: want={} got=%s", c)
	}
}

func TestHashPayloadSensitivity(t *testing.T) {
	h1 := blobstore.HashPayload([]byte(`{"status":"open"}`))
	h2 := blobstore.HashPayload([]byte(`{"status":"done"}`))
	if h1 == h2 {
		t.Fatal("distinct payloads hash equal")
	}
	if len(h1) != 64 {
		t.Fatalf("hash length: want=64 got=%d", len(h1))
	}
}

func TestHashText(t *testing.T) {
	if hashText("a") == hashText("b") {
		t.Fatal("distinct texts hash equal")
	}
	if hashText("a") != hashText("a") {
		t.Fatal("hash not deterministic")
	}
}
