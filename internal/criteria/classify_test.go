package criteria

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testLayout() Layout {
	return Layout{
		BuildOutputDir:      "plz-out",
		ThirdPartyOutputDir: "plz-out/gen/third_party/js/",
		ThirdPartyPackage:   "third_party/js",
		PackageRule:         "npm_library",
		FileCalls: []FileCall{
			{ID: "js_library", Srcs: "srcs", Deps: "deps", Label: "name"},
			{ID: "js_library", Srcs: "src", Deps: "deps", Label: "name"},
			{ID: "filegroup", Srcs: "srcs", Deps: "deps", Label: "name"},
		},
	}
}

func TestClassify(t *testing.T) {
	root := filepath.FromSlash("/repo")
	c := NewClassifier(root, testLayout())

	tests := []struct {
		name     string
		importID string
		resolved string
		want     Result
	}{
		{
			name:     "scoped third-party package",
			importID: "@foo/bar",
			resolved: "/repo/plz-out/gen/third_party/js/@foo/bar/lib/index.js",
			want: Result{
				Outcome: OutcomePackage,
				Criteria: &PackageCriteria{
					ImportID: "@foo/bar",
					Lookups: []PackageLookup{{
						Package: "third_party/js/@foo",
						Call: PackageCall{
							ID:    "npm_library",
							Args:  map[string]string{"name": "^bar$"},
							Label: "name",
						},
					}},
				},
			},
		},
		{
			name:     "unscoped third-party package",
			importID: "graphql-tag",
			resolved: "/repo/plz-out/gen/third_party/js/graphql-tag/lib/graphql-tag.umd.js",
			want: Result{
				Outcome: OutcomePackage,
				Criteria: &PackageCriteria{
					ImportID: "graphql-tag",
					Lookups: []PackageLookup{{
						Package: "third_party/js",
						Call: PackageCall{
							ID:    "npm_library",
							Args:  map[string]string{"name": "^graphql-tag$"},
							Label: "name",
						},
					}},
				},
			},
		},
		{
			name:     "package name is quoted",
			importID: "lodash.debounce",
			resolved: "/repo/plz-out/gen/third_party/js/lodash.debounce/index.js",
			want: Result{
				Outcome: OutcomePackage,
				Criteria: &PackageCriteria{
					ImportID: "lodash.debounce",
					Lookups: []PackageLookup{{
						Package: "third_party/js",
						Call: PackageCall{
							ID:    "npm_library",
							Args:  map[string]string{"name": `^lodash\.debounce$`},
							Label: "name",
						},
					}},
				},
			},
		},
		{
			name:     "first-party file",
			importID: "../utils/helpers",
			resolved: "/repo/src/utils/helpers.ts",
			want: Result{
				Outcome: OutcomeFile,
				Criteria: &FileCriteria{
					ImportID: "../utils/helpers",
					Lookup: FileLookup{
						File:  "src/utils/helpers.ts",
						Calls: testLayout().FileCalls,
					},
				},
			},
		},
		{
			name:     "generated build output",
			importID: "@gen/schema",
			resolved: "/repo/plz-out/gen/src/schema/index.js",
			want:     Result{Outcome: OutcomeBuildOutput},
		},
		{
			name:     "sibling of build output is first-party",
			importID: "./plz-outside",
			resolved: "/repo/plz-outside/index.js",
			want: Result{
				Outcome: OutcomeFile,
				Criteria: &FileCriteria{
					ImportID: "./plz-outside",
					Lookup: FileLookup{
						File:  "plz-outside/index.js",
						Calls: testLayout().FileCalls,
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.importID, filepath.FromSlash(tt.resolved))
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassify_FileCallsAreCopied(t *testing.T) {
	c := NewClassifier("/repo", testLayout())
	got, err := c.Classify("./a", "/repo/a.js")
	if err != nil {
		t.Fatal(err)
	}
	fc := got.Criteria.(*FileCriteria)
	fc.Lookup.Calls[0].ID = "mutated"

	again, _ := c.Classify("./a", "/repo/a.js")
	if id := again.Criteria.(*FileCriteria).Lookup.Calls[0].ID; id != "js_library" {
		t.Errorf("classifier layout was mutated through a result: %q", id)
	}
}

func TestClassify_Errors(t *testing.T) {
	c := NewClassifier("/repo", testLayout())

	tests := []struct {
		name     string
		resolved string
		check    func(error) bool
	}{
		{
			name:     "outside repository",
			resolved: "/elsewhere/node_modules/react/index.js",
			check: func(err error) bool {
				var oor *OutOfRepositoryError
				return errors.As(err, &oor) && oor.Path == "/elsewhere/node_modules/react/index.js"
			},
		},
		{
			name:     "repository prefix is not enough",
			resolved: "/repository/src/a.js",
			check: func(err error) bool {
				var oor *OutOfRepositoryError
				return errors.As(err, &oor)
			},
		},
		{
			name:     "scope without package",
			resolved: "/repo/plz-out/gen/third_party/js/@foo/index.js",
			check: func(err error) bool {
				var up *UnrecognizedPathError
				return errors.As(err, &up) && up.Path == "plz-out/gen/third_party/js/@foo/index.js" &&
					strings.Contains(err.Error(), "scope directory")
			},
		},
		{
			name:     "file directly in third-party output",
			resolved: "/repo/plz-out/gen/third_party/js/loose.js",
			check: func(err error) bool {
				var up *UnrecognizedPathError
				return errors.As(err, &up) && up.Path == "plz-out/gen/third_party/js/loose.js" &&
					strings.Contains(err.Error(), "directly in the third-party output directory")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Classify("x", filepath.FromSlash(tt.resolved))
			if err == nil {
				t.Fatal("Classify() error = nil, want error")
			}
			if !tt.check(err) {
				t.Errorf("Classify() error = %v (%T), wrong kind", err, err)
			}
		})
	}
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomePackage:     "package",
		OutcomeFile:        "file",
		OutcomeBuildOutput: "build-output",
		Outcome(99):        "unknown",
	} {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", o, got, want)
		}
	}
}
