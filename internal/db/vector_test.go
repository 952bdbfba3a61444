package db

import "testing"

func TestVectorCodec(t *testing.T) {
	in := []float32{1, -0.5, 3.25}
	raw := EncodeVector(in)
	if len(raw) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(raw))
	}
	out, err := DecodeVector(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("index %d: expected %v, got %v", i, in[i], out[i])
		}
	}

	if _, err := DecodeVector("abc"); err == nil {
		t.Error("expected error for truncated blob")
	}
}
