package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"medshelf/m/internal/gate"
)

func newSchemaCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the store's schema version, tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("schema does not accept positional arguments")
			}
			return withSession(cmd.Context(), deps, func(ctx context.Context, s *session) error {
				schema, err := s.handle.Schema(ctx)
				if err != nil {
					return err
				}
				if deps.globals.JSON() {
					return printJSON(deps.out, schema)
				}
				_, err = fmt.Fprintf(deps.out, "schema version %d\ntables: %s\nindexes: %s\n",
					schema.Version, strings.Join(schema.Tables, ", "), strings.Join(schema.Indexes, ", "))
				return err
			})
		},
	}
}

func newHashPassphraseCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-passphrase",
		Short: "Read a form gate passphrase from stdin and print its hash",
		Long: "Read a passphrase from stdin and print the bcrypt hash to put in\n" +
			"[gate] passphrase_hash or MEDSHELF_GATE_HASH. The gate only hides the\n" +
			"add form in the UI; it does not protect any data.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("hash-passphrase reads the passphrase from stdin")
			}
			line, err := bufio.NewReader(deps.in).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return mapCommandError(fmt.Errorf("read passphrase: %w", err))
			}
			passphrase := strings.TrimRight(line, "\r\n")
			if passphrase == "" {
				return usageErrorf("empty passphrase")
			}
			hashed, err := gate.HashPassphrase(passphrase)
			if err != nil {
				return mapCommandError(err)
			}
			_, err = fmt.Fprintln(deps.out, hashed)
			return err
		},
	}
}

func newVersionCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("version does not accept positional arguments")
			}
			if deps.globals.JSON() {
				return mapCommandError(printJSON(deps.out, deps.build))
			}
			_, err := fmt.Fprintf(
				deps.out,
				"version=%s commit=%s build_time=%s\n",
				deps.build.Version,
				deps.build.Commit,
				deps.build.BuildTime,
			)
			return mapCommandError(err)
		},
	}
}
