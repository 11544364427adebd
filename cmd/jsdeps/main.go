// Command jsdeps prints the build dependency criteria of a JavaScript or
// TypeScript file.
//
// Usage:
//
//	REPO=$(pwd) jsdeps src/app/main.ts
//	jsdeps --repo . --check expected.json src/app/main.ts
package main

import (
	"os"

	"github.com/albertocavalcante/depcrit/internal/cmd/jsdeps"
)

func main() {
	os.Exit(jsdeps.Run(os.Args[1:]))
}
