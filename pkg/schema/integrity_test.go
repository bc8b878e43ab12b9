package schema

import (
	"errors"
	"testing"
)

func TestCheckIntegrity(t *testing.T) {
	in := `{"metadata":{"timestamp":"t","source":"s","date":"d"},
	 "nodes":[
	   {"id":"a","type":"Person","name":"A","properties":[]},
	   {"id":"a","type":"Person","name":"A again","properties":[]},
	   {"id":"","type":"Person","name":"Nameless","properties":[]},
	   {"id":"b","type":"Company","name":"B","properties":[]}
	 ],
	 "relationships":[
	   {"source_id":"a","target_id":"b","type":"WORKS_AT","name":"works at"},
	   {"source_id":"ghost","target_id":"b","type":"KNOWS","name":"knows"},
	   {"source_id":"a","target_id":"nowhere","type":"KNOWS","name":"knows"}
	 ]}`

	plain := ValidateString(in)
	if !plain.Valid() {
		t.Fatalf("structural pass should accept the document, got %v", plain.Errors)
	}

	errs := CheckIntegrity(plain.Document)
	want := []struct {
		path string
		code Code
	}{
		{"nodes[1].id", CodeDuplicateID},
		{"nodes[2].id", CodeEmptyID},
		{"relationships[1].source_id", CodeDanglingSource},
		{"relationships[2].target_id", CodeDanglingTarget},
	}
	if len(errs) != len(want) {
		t.Fatalf("expected %d errors, got %d: %v", len(want), len(errs), errs)
	}
	for i, w := range want {
		if errs[i].Path.String() != w.path || errs[i].Code != w.code {
			t.Errorf("error %d: expected %s (%s), got %s (%s)", i, w.path, w.code, errs[i].Path, errs[i].Code)
		}
		if !errors.Is(errs[i], ErrReference) {
			t.Errorf("error %d should wrap ErrReference", i)
		}
	}

	strict := ValidateString(in, WithIntegrity())
	if strict.Valid() {
		t.Fatal("expected strict validation to fail")
	}
	if len(strict.Errors) != len(want) {
		t.Errorf("expected %d strict errors, got %d", len(want), len(strict.Errors))
	}
}

func TestCheckIntegrityClean(t *testing.T) {
	res := ValidateString(minimalDoc, WithIntegrity())
	if !res.Valid() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
}

func TestIntegritySkippedOnStructuralFailure(t *testing.T) {
	res := ValidateString(`{"metadata":{"timestamp":"t","source":"s","date":"d"},"nodes":[{"id":""}],"relationships":[]}`, WithIntegrity())
	for _, e := range res.Errors {
		if errors.Is(e, ErrReference) {
			t.Errorf("integrity error reported alongside structural errors: %v", e)
		}
	}
}
