package missingdeps

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/albertocavalcante/depcrit/internal/testutil"
)

const fixture = `
-- tsconfig.json --
{"compilerOptions": {"baseUrl": ".", "paths": {"*": ["*", "plz-out/gen/third_party/js/*"]}}}
-- src/app/BUILD --
js_library(
    name = "app_lib",
    srcs = ["main.ts", "local.ts"],
    deps = ["//src/lib:format"],
)

js_library(
    name = "complete",
    srcs = ["complete.ts"],
    deps = [
        "//src/lib:format",
        "//third_party/js:react",
    ],
)
-- src/app/main.ts --
import { format } from "../lib/format";
import { local } from "./local";
import React from "react";
-- src/app/local.ts --
-- src/app/complete.ts --
import { format } from "../lib/format";
import React from "react";
-- src/app/orphan.ts --
import React from "react";
-- src/lib/BUILD --
js_library(
    name = "format",
    srcs = ["format.ts"],
)
-- src/lib/format.ts --
-- third_party/js/BUILD --
npm_library(
    name = "react",
    version = "18.2.0",
)
-- plz-out/gen/third_party/js/react/index.js --
`

func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := RunWithIO(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Missing(t *testing.T) {
	root := testutil.Repo(t, fixture)

	code, stdout, stderr := run(t, "", "-repo", root, filepath.Join(root, "src", "app", "main.ts"))
	if code != 2 {
		t.Fatalf("missingdeps returned %d, want 2\nstderr: %s", code, stderr)
	}

	for _, want := range []string{
		"# Declared dependencies of //src/app:app_lib:\n//src/lib:format\n",
		"# Missing dependencies of //src/app:app_lib:\ndeps = [\n    \"//third_party/js:react\",\n]",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "local") {
		t.Errorf("an import owned by the same target was reported:\n%s", stdout)
	}
}

func TestRun_JSON(t *testing.T) {
	root := testutil.Repo(t, fixture)

	code, stdout, stderr := run(t, "", "-repo", root, "-json", filepath.Join(root, "src", "app", "main.ts"))
	if code != 2 {
		t.Fatalf("missingdeps returned %d, want 2\nstderr: %s", code, stderr)
	}

	var got report
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decoding report: %v\n%s", err, stdout)
	}
	want := report{
		Target:   "//src/app:app_lib",
		Declared: []string{"//src/lib:format"},
		Missing:  []missingImport{{Import: "react", Target: "//third_party/js:react"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_Complete(t *testing.T) {
	root := testutil.Repo(t, fixture)

	code, stdout, stderr := run(t, "", "-repo", root, filepath.Join(root, "src", "app", "complete.ts"))
	if code != 0 {
		t.Fatalf("missingdeps returned %d, want 0\nstderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "# No missing dependencies.") {
		t.Errorf("stdout =\n%s", stdout)
	}
}

func TestRun_CriteriaFromStdin(t *testing.T) {
	root := testutil.Repo(t, fixture)
	criteria := `[{"type":"package","importId":"react","lookups":[{"package":"third_party/js","call":{"id":"npm_library","args":{"name":"^react$"},"label":"name"}}]}]`

	code, stdout, stderr := run(t, criteria, "-repo", root, "-criteria", "-", filepath.Join(root, "src", "app", "main.ts"))
	if code != 2 {
		t.Fatalf("missingdeps returned %d, want 2\nstderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, `"//third_party/js:react",`) {
		t.Errorf("stdout =\n%s", stdout)
	}
}

func TestRun_UnownedFile(t *testing.T) {
	root := testutil.Repo(t, fixture)

	code, _, stderr := run(t, "", "-repo", root, filepath.Join(root, "src", "app", "orphan.ts"))
	if code != 1 {
		t.Errorf("missingdeps returned %d, want 1", code)
	}
	if !strings.Contains(stderr, "no matching build target") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRun_MissingArgument(t *testing.T) {
	code, _, stderr := run(t, "")
	if code != 1 {
		t.Errorf("missingdeps returned %d, want 1", code)
	}
	if !strings.Contains(stderr, "a source file is required") {
		t.Errorf("stderr = %q", stderr)
	}
}
