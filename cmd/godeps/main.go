package main

import (
	"os"

	"github.com/albertocavalcante/depcrit/internal/cmd/godeps"
)

func main() {
	os.Exit(godeps.Run(os.Args[1:]))
}
