//go:build property

package registry

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestModulesProperties validates the single-execution guarantee of the registry
func TestModulesProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("repeated requires execute each body once", prop.ForAll(
		func(moduleCount int, requires []int) bool {
			modules := New()
			executions := make([]int, moduleCount)

			for i := 0; i < moduleCount; i++ {
				i := i
				if err := modules.Define(fmt.Sprintf("m%d", i), func(_ *Module, exports *Exports, _ RequireFunc) error {
					executions[i]++
					exports.Set(DefaultExport, i)
					return nil
				}); err != nil {
					return false
				}
			}

			seen := make(map[int]*Exports)
			for _, r := range requires {
				idx := r % moduleCount
				exports, err := modules.Require(fmt.Sprintf("m%d", idx))
				if err != nil {
					return false
				}
				if prev, ok := seen[idx]; ok && prev != exports {
					return false
				}
				seen[idx] = exports
			}

			for idx, count := range executions {
				_, required := seen[idx]
				if required && count != 1 {
					return false
				}
				if !required && count != 0 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}
