// Package cmdtest provides a testscript-based test harness for depcrit CLI tools.
//
// Test files are txtar archives holding a script and the repository it runs
// against. Example (testdata/jsdeps/relative.txtar):
//
//	# A relative import of a first-party file
//	exec jsdeps -repo $WORK src/main.ts
//	stdout '"importId":"./util"'
//
//	-- tsconfig.json --
//	{}
//	-- src/main.ts --
//	import { u } from "./util";
//	-- src/util.ts --
package cmdtest

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/albertocavalcante/depcrit/internal/cmd/godeps"
	"github.com/albertocavalcante/depcrit/internal/cmd/jsdeps"
	"github.com/albertocavalcante/depcrit/internal/cmd/missingdeps"
	"github.com/albertocavalcante/depcrit/internal/config"
)

// Run executes the testscript tests in the given directory.
func Run(t *testing.T, dir string) {
	testscript.Run(t, testscript.Params{
		Dir: dir,
		Setup: func(env *testscript.Env) error {
			// Scripts name the repository explicitly; nothing may leak in
			// from the environment running the tests.
			env.Setenv(config.EnvRepo, "")
			env.Setenv(config.EnvConfig, "")
			return nil
		},
	})
}

// Main is the TestMain function that should be called from test files.
// It sets up the CLI tools as testscript commands.
func Main(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"jsdeps":      wrapRun(jsdeps.Run),
		"godeps":      wrapRun(godeps.Run),
		"missingdeps": wrapRun(missingdeps.Run),
	}))
}

// wrapRun wraps a Run(args []string) int function to func() int for testscript.
// The args are taken from os.Args[1:].
func wrapRun(run func(args []string) int) func() int {
	return func() int {
		return run(os.Args[1:])
	}
}
