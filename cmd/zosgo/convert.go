// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zosgo/zosgo/internal/payload"
	"github.com/zosgo/zosgo/internal/payload/parsers"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		format    string
		constants bool
		archive   bool
		out       string
	)
	cmd := &cobra.Command{
		Use:   "convert [payload-file]",
		Short: "Convert a raw analysis payload into record text",
		Long: `Convert reads a raw analysis payload (a JSON or YAML document, or a
sectioned text export; "-" reads stdin), applies the mapping rule of its
analysis kind and prints the validated record as interchange text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			conv, err := a.converter(constants)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			res, err := parsers.Default().RunWithMeta(ctx, payload.Source{
				Content: content,
				Format:  format,
				ID:      args[0],
			})
			if err != nil {
				return err
			}
			a.logger.DebugContext(ctx, "payload parsed",
				"parser", res.ParserUsed,
				"analysis", res.Payload.Analysis,
				"reclassified", res.Reclassified,
			)

			rec, warnings, err := conv.Record(ctx, res.Payload)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			text, err := rec.Encode()
			if err != nil {
				return err
			}

			if archive {
				s, err := a.openStore()
				if err != nil {
					return err
				}
				defer s.Close()
				e, err := s.Put(ctx, rec, res.Payload.Source)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "archived %s\n", e.ID)
			}

			if out != "" {
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return err
				}
				return os.WriteFile(out, text, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(text)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Payload format: json, yaml, text (auto-detected when empty)")
	cmd.Flags().BoolVar(&constants, "constants", false, "Resolve settings codes to host constant names")
	cmd.Flags().BoolVar(&archive, "archive", false, "Store the record in the archive")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the record text to a file instead of stdout")

	cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml", "text"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
