// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/zosgo/zosgo/internal/convert"
)

// Hooks returns the post-processing hooks by the name rules use in
// post_process.
func Hooks() map[string]convert.Hook {
	return map[string]convert.Hook{
		"strip_sampling_prefix":         stripSamplingPrefix,
		"zernike_standard_coefficients": zernikeStandardCoefficients,
	}
}

// stripSamplingPrefix turns a sampling constant name such as S_64x64 into
// the grid size 64x64.
func stripSamplingPrefix(_ context.Context, candidate map[string]any, _ *convert.Payload) error {
	settings, ok := candidate["settings"].(map[string]any)
	if !ok {
		return nil
	}
	if s, ok := settings["sampling"].(string); ok {
		settings["sampling"] = strings.TrimPrefix(s, "S_")
	}
	return nil
}

func zernikeStandardCoefficients(ctx context.Context, candidate map[string]any, p *convert.Payload) error {
	if err := stripSamplingPrefix(ctx, candidate, p); err != nil {
		return err
	}
	data, ok := candidate["data"].(map[string]any)
	if !ok {
		return fmt.Errorf("data is %T, not a mapping", candidate["data"])
	}
	coefficients, _ := data["coefficients"].(map[string]any)
	for term, v := range coefficients {
		c, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("coefficient %s is %T, not a mapping", term, v)
		}
		if f, ok := c["formula"]; ok && f != nil {
			c["formula"] = strings.Join(strings.Fields(fmt.Sprint(f)), " ")
		}
	}
	return nil
}
