// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// An option sharing a name with an operator would make every mapping that
// uses it ambiguous.
func TestOperators_OptionsDoNotShadowOperators(t *testing.T) {
	for op, opts := range operators {
		for _, o := range opts {
			_, clash := operators[o]
			assert.False(t, clash, "option %q of %s is also an operator", o, op)
		}
	}
}
