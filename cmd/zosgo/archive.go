// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zosgo/zosgo/internal/store"
)

func newArchiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage archived records",
	}
	cmd.AddCommand(newArchiveListCmd(a), newArchiveGetCmd(a), newArchiveDeleteCmd(a))
	return cmd
}

func newArchiveListCmd(a *app) *cobra.Command {
	var (
		analysis string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.List(cmd.Context(), store.ListOptions{Analysis: analysis, Limit: limit})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tANALYSIS\tVERSION\tSOURCE\tCREATED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					e.ID, e.Analysis, e.Version, e.Source, e.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&analysis, "analysis", "a", "", "Only list records of this analysis kind")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of records (0 lists all)")
	return cmd
}

func newArchiveGetCmd(a *app) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Print an archived record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			e, rec, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if pretty {
				return render(cmd.OutOrStdout(), rec, 0)
			}
			_, err = cmd.OutOrStdout().Write(e.Text)
			return err
		},
	}
	cmd.Flags().BoolVarP(&pretty, "show", "s", false, "Print the record like the show command")
	return cmd
}

func newArchiveDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an archived record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		},
	}
}
