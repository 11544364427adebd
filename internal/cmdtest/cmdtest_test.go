package cmdtest

import (
	"testing"
)

func TestMain(m *testing.M) {
	Main(m)
}

func TestJsdeps(t *testing.T) {
	Run(t, "testdata/jsdeps")
}

func TestMissingdeps(t *testing.T) {
	Run(t, "testdata/missingdeps")
}
