// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zosgo/zosgo/internal/result"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [record-file]",
		Short: "Validate record text against its analysis kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			rec, err := result.DefaultCatalog().DecodeContext(cmd.Context(), text)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: valid %s record (version %d)\n",
				args[0], rec.Metadata.Analysis, rec.Metadata.Version)
			return err
		},
	}
}
