//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

// Embedded WGSL shader sources.

//go:embed shaders/sample.wgsl
var sampleShaderSource string

//go:embed shaders/preview.wgsl
var previewShaderSource string

// validateShaders compiles every embedded shader with naga so that a broken
// shader fails Setup with a readable error instead of a driver fault.
func validateShaders() error {
	for _, s := range []struct {
		name, src string
	}{
		{"sample", sampleShaderSource},
		{"preview", previewShaderSource},
	} {
		if s.src == "" {
			return fmt.Errorf("%s shader: empty source", s.name)
		}
		if _, err := naga.Compile(s.src); err != nil {
			return fmt.Errorf("%s shader: %w", s.name, err)
		}
	}
	return nil
}
