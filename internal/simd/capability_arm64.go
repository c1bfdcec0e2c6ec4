//go:build arm64

package simd

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

func init() {
	// cpu.ARM64 feature bits are unpopulated on darwin; every Apple Silicon
	// core has ASIMD.
	hasASIMD = cpu.ARM64.HasASIMD || runtime.GOOS == "darwin"
	hasSVE2 = cpu.ARM64.HasSVE2
	initCapabilities()
}
