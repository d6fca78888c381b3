// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/zosgo/zosgo/internal/store"
	"github.com/zosgo/zosgo/internal/tool"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		constants bool
		archive   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := a.converter(constants)
			if err != nil {
				return err
			}
			opts := []tool.Option{tool.WithLogger(a.logger)}
			if archive {
				var s *store.Store
				if s, err = a.openStore(); err != nil {
					return err
				}
				defer s.Close()
				opts = append(opts, tool.WithArchive(s))
			}

			server := tool.New(conv, opts...).NewServer(version)
			a.logger.InfoContext(cmd.Context(), "serving MCP on stdio", "version", version, "archive", archive)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
	cmd.Flags().BoolVar(&constants, "constants", false, "Resolve settings codes to host constant names")
	cmd.Flags().BoolVar(&archive, "archive", false, "Allow tools to store records in the archive")
	return cmd
}
