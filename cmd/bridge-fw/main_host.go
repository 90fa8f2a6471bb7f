//go:build !rp2040

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "bridge-fw targets the Pico; build with: tinygo build -target=pico ./cmd/bridge-fw")
	os.Exit(2)
}
