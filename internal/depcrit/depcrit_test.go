package depcrit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/albertocavalcante/depcrit/internal/config"
	"github.com/albertocavalcante/depcrit/internal/criteria"
	"github.com/albertocavalcante/depcrit/internal/js/extract"
	"github.com/albertocavalcante/depcrit/internal/js/resolver"
	"github.com/albertocavalcante/depcrit/internal/js/tsconfig"
	"github.com/albertocavalcante/depcrit/internal/testutil"
)

const workspace = `
-- repo/tsconfig.json --
{
  "compilerOptions": {
    "baseUrl": ".",
    "paths": {
      "@foo/*": ["plz-out/gen/third_party/js/@foo/*"],
      "gen/*": ["plz-out/gen/*"],
      "outside/*": ["../outside/*"],
      "*": ["*", "plz-out/gen/third_party/js/*"]
    }
  }
}
-- repo/src/main.ts --
import { h } from "./utils/helpers";
import { bar } from "@foo/bar";
import * as fs from "fs";
import { generated } from "gen/src/generated";
import React from "react";
import { useState } from "react";
-- repo/src/utils/helpers.ts --
export const h = 1;
-- repo/src/only_generated.js --
import { generated } from "gen/src/generated";
import path from "node:path";
-- repo/src/dangling.js --
import a from "./a";
import gone from "./missing";
-- repo/src/a.js --
-- repo/src/escape.js --
import x from "outside/x";
-- repo/src/broken.js --
import a from "./a"
const = ;
-- repo/plz-out/gen/third_party/js/@foo/bar/package.json --
{"main": "lib/index.js"}
-- repo/plz-out/gen/third_party/js/@foo/bar/lib/index.js --
-- repo/plz-out/gen/third_party/js/react/index.js --
-- repo/plz-out/gen/src/generated.js --
-- outside/x.js --
`

func newPipeline(t *testing.T) (*Pipeline, string) {
	t.Helper()

	root := filepath.Join(testutil.Repo(t, workspace), "repo")
	p, err := New(Options{Root: root})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, root
}

func TestRun(t *testing.T) {
	p, root := newPipeline(t)

	got, err := p.Run(context.Background(), filepath.Join(root, "src", "main.ts"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []criteria.Criteria{
		&criteria.FileCriteria{
			ImportID: "./utils/helpers",
			Lookup: criteria.FileLookup{
				File:  "src/utils/helpers.ts",
				Calls: config.DefaultConfig().Layout().FileCalls,
			},
		},
		&criteria.PackageCriteria{
			ImportID: "@foo/bar",
			Lookups: []criteria.PackageLookup{{
				Package: "third_party/js/@foo",
				Call:    criteria.PackageCall{ID: "npm_library", Args: map[string]string{"name": "^bar$"}, Label: "name"},
			}},
		},
		&criteria.PackageCriteria{
			ImportID: "react",
			Lookups: []criteria.PackageLookup{{
				Package: "third_party/js",
				Call:    criteria.PackageCall{ID: "npm_library", Args: map[string]string{"name": "^react$"}, Label: "name"},
			}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_OnlySkippedImports(t *testing.T) {
	p, root := newPipeline(t)

	got, err := p.Run(context.Background(), filepath.Join(root, "src", "only_generated.js"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Run() = %#v, want empty non-nil slice", got)
	}

	data, err := criteria.Encode(got, false)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("Encode() = %s, want []", data)
	}
}

func TestRun_Errors(t *testing.T) {
	p, root := newPipeline(t)

	tests := []struct {
		name  string
		file  string
		check func(error) bool
	}{
		{
			name: "unresolved import aborts the run",
			file: "src/dangling.js",
			check: func(err error) bool {
				var e *resolver.UnresolvedError
				return errors.As(err, &e) && e.Specifier == "./missing"
			},
		},
		{
			name: "import outside the repository",
			file: "src/escape.js",
			check: func(err error) bool {
				var e *criteria.OutOfRepositoryError
				return errors.As(err, &e)
			},
		},
		{
			name: "syntax error",
			file: "src/broken.js",
			check: func(err error) bool {
				var e *extract.ParseError
				return errors.As(err, &e)
			},
		},
		{
			name: "missing source file",
			file: "src/nope.js",
			check: func(err error) bool { return err != nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Run(context.Background(), filepath.Join(root, filepath.FromSlash(tt.file)))
			if got != nil {
				t.Errorf("Run() = %v, want no partial output", got)
			}
			if !tt.check(err) {
				t.Errorf("Run() unexpected error = %v", err)
			}
		})
	}
}

func TestRun_Canceled(t *testing.T) {
	p, root := newPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx, filepath.Join(root, "src", "main.ts")); err == nil {
		t.Error("Run() with canceled context succeeded, want error")
	}
}

func TestNew_MissingAliasConfig(t *testing.T) {
	root := testutil.Repo(t, "-- src/a.js --\n")

	_, err := New(Options{Root: root})
	if !errors.Is(err, tsconfig.ErrLoad) {
		t.Errorf("New() error = %v, want tsconfig.ErrLoad", err)
	}
}

func TestNew_TSConfigOverride(t *testing.T) {
	root := testutil.Repo(t, `
-- config/ts.json --
{"compilerOptions": {"baseUrl": "../src"}}
-- src/lib/util.ts --
-- src/app.js --
import u from "lib/util";
`)

	p, err := New(Options{Root: root, TSConfig: filepath.Join(root, "config", "ts.json")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err := p.Run(context.Background(), filepath.Join(root, "src", "app.js"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 1 || got[0].Type() != criteria.TypeFile {
		t.Fatalf("Run() = %v, want one file criteria", got)
	}
	if f := got[0].(*criteria.FileCriteria); f.Lookup.File != "src/lib/util.ts" {
		t.Errorf("file = %q, want src/lib/util.ts", f.Lookup.File)
	}
}
