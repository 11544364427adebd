package main

import (
	"os"

	"github.com/albertocavalcante/depcrit/internal/cmd/missingdeps"
)

func main() {
	os.Exit(missingdeps.Run(os.Args[1:]))
}
