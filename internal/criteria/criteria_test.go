package criteria

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncode(t *testing.T) {
	list := []Criteria{
		&PackageCriteria{
			ImportID: "react",
			Lookups: []PackageLookup{{
				Package: "third_party/js",
				Call:    PackageCall{ID: "npm_library", Args: map[string]string{"name": "^react$"}, Label: "name"},
			}},
		},
		&FileCriteria{
			ImportID: "./a",
			Lookup: FileLookup{
				File:  "src/a.js",
				Calls: []FileCall{{ID: "filegroup", Srcs: "srcs", Deps: "deps", Label: "name"}},
			},
		},
	}

	got, err := Encode(list, false)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	want := `[{"type":"package","importId":"react","lookups":[{"package":"third_party/js","call":{"id":"npm_library","args":{"name":"^react$"},"label":"name"}}]},` +
		`{"type":"file","importId":"./a","lookup":{"file":"src/a.js","calls":[{"id":"filegroup","srcs":"srcs","deps":"deps","label":"name"}]}}]`
	if string(got) != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
	}

	back, err := Decode(got)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if diff := cmp.Diff(list, back); diff != "" {
		t.Errorf("Decode(Encode()) mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_Empty(t *testing.T) {
	got, err := Encode(nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "[]" {
		t.Errorf("Encode(nil) = %s, want []", got)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not an array", input: `{"type":"file"}`},
		{name: "unknown type", input: `[{"type":"module","importId":"x"}]`},
		{name: "missing type", input: `[{"importId":"x"}]`},
		{name: "bad lookups", input: `[{"type":"package","lookups":"nope"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); err == nil {
				t.Errorf("Decode(%s) error = nil, want error", tt.input)
			}
		})
	}
}
