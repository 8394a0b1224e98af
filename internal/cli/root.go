// Package cli implements the medshelf command line.
package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Format     string
}

func (g *GlobalOptions) JSON() bool {
	return g != nil && g.Format == formatJSON
}

type commandDeps struct {
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	build   BuildInfo
	globals *GlobalOptions
}

func NewRootCommand(in io.Reader, out, errOut io.Writer, build BuildInfo) *cobra.Command {
	globals := &GlobalOptions{Format: formatText}
	deps := commandDeps{in: in, out: out, errOut: errOut, build: build, globals: globals}

	cmd := &cobra.Command{
		Use:           "medshelf",
		Short:         "Medicine inventory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch globals.Format {
			case formatText, formatJSON:
				return nil
			}
			return usageErrorf("unknown output format %q (want text or json)", globals.Format)
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	cmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "", "Path to a TOML config file")
	cmd.PersistentFlags().StringVar(&globals.Format, "format", formatText, "Output format: text or json")

	cmd.AddCommand(
		newServeCommand(deps),
		newAddCommand(deps),
		newListCommand(deps),
		newDeleteCommand(deps),
		newImportCommand(deps),
		newExportCommand(deps),
		newSchemaCommand(deps),
		newHashPassphraseCommand(deps),
		newVersionCommand(deps),
	)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
