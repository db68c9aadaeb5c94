package driver

import "embed"

//go:embed resources/aux_runtime.asm
var resources embed.FS

// auxSource returns the embedded NASM source for the auxiliary routines
// every compiled program links against.
func auxSource() ([]byte, error) {
	return resources.ReadFile("resources/aux_runtime.asm")
}
