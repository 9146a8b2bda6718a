package bytecode

import (
	"bytes"
	"testing"
)

func TestSerializeRoundTrip(t *testing.T) {
	source := `function greet(name) {
  return "hi " + name
}
total = 0
for i in range(1, 4) {
  try {
    total += i
  } finally {
    total += 0
  }
}
print(greet("world"), total)`
	chunk := compileSource(t, source)

	s := NewSerializer()
	data, err := s.SerializeChunk(chunk)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	loaded, err := s.DeserializeChunk(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if len(loaded.Code) != len(chunk.Code) {
		t.Fatalf("code length %d, want %d", len(loaded.Code), len(chunk.Code))
	}
	for i := range chunk.Code {
		if loaded.Code[i] != chunk.Code[i] {
			t.Errorf("instruction %d differs: %v vs %v", i, loaded.Code[i], chunk.Code[i])
		}
	}
	if loaded.LocalCount != chunk.LocalCount {
		t.Errorf("local count %d, want %d", loaded.LocalCount, chunk.LocalCount)
	}
	if len(loaded.Constants) != len(chunk.Constants) {
		t.Fatalf("constant count %d, want %d", len(loaded.Constants), len(chunk.Constants))
	}
	if len(loaded.TryInfos()) != len(chunk.TryInfos()) {
		t.Errorf("try table size %d, want %d", len(loaded.TryInfos()), len(chunk.TryInfos()))
	}

	// The loaded chunk must execute identically.
	var want, got bytes.Buffer
	if _, err := NewVM(WithOutput(&want)).Run(chunk); err != nil {
		t.Fatalf("original run: %v", err)
	}
	if _, err := NewVM(WithOutput(&got)).Run(loaded); err != nil {
		t.Fatalf("loaded run: %v", err)
	}
	if want.String() != got.String() {
		t.Errorf("outputs differ: %q vs %q", want.String(), got.String())
	}
}

func TestSerializeNestedClosures(t *testing.T) {
	source := `function mk(x) { return (y) -> x + y }
print(mk(40)(2))`
	chunk := compileSource(t, source)

	s := NewSerializer()
	data, err := s.SerializeChunk(chunk)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := s.DeserializeChunk(data)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if _, err := NewVM(WithOutput(&out)).Run(loaded); err != nil {
		t.Fatalf("run loaded chunk: %v", err)
	}
	if out.String() != "42\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	_, err := NewSerializer().DeserializeChunk([]byte("BOGUS-DATA"))
	if err == nil {
		t.Fatal("expected an error for a bad magic number")
	}
}

func TestDeserializeRejectsNewerMajor(t *testing.T) {
	chunk := compileSource(t, "x = 1")
	data, err := NewSerializer().SerializeChunk(chunk)
	if err != nil {
		t.Fatal(err)
	}
	data[4] = VersionMajor + 1
	if _, err := NewSerializer().DeserializeChunk(data); err == nil {
		t.Fatal("expected an error for an incompatible major version")
	}
}

func TestDeserializeRejectsShortInput(t *testing.T) {
	if _, err := NewSerializer().DeserializeChunk([]byte{1, 2}); err == nil {
		t.Fatal("expected an error for truncated input")
	}
}

func TestVersionCompatibility(t *testing.T) {
	v10 := SerializerVersion{Major: 1, Minor: 0}
	v11 := SerializerVersion{Major: 1, Minor: 1}
	v20 := SerializerVersion{Major: 2, Minor: 0}

	if !v11.IsCompatible(v10) {
		t.Error("newer minor must read older minor")
	}
	if v10.IsCompatible(v11) {
		t.Error("older minor must reject newer minor")
	}
	if v10.IsCompatible(v20) || v20.IsCompatible(v10) {
		t.Error("major versions must match exactly")
	}
}
