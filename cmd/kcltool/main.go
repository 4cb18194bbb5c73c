// kcltool inspects course collision files and runs collision queries against them
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"kartcol/internal/assets"
	"kartcol/internal/config"
	"kartcol/internal/kcl"
	"kartcol/internal/logging"
)

var logger = logging.For("kcltool")

type app struct {
	configPath string
	archiveDir string
	logLevel   string
	asJSON     bool

	cfg     *config.Config
	archive *assets.Archive
	out     io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "kcltool",
		Short:         "Inspect course collision files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "JSON config file")
	root.PersistentFlags().StringVar(&a.archiveDir, "archive", "", "archive directory, overrides the config")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level, overrides the config")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print JSON")

	root.AddCommand(
		newInfoCmd(a),
		newPrismsCmd(a),
		newQueryCmd(a),
		newSchemaCmd(a),
	)
	return root
}

// setup loads the config and opens the archive. Commands that read terrain
// call it from RunE.
func (a *app) setup() error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.archiveDir != "" {
		cfg.ArchiveDir = a.archiveDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	archive, err := assets.Open(cfg.ArchiveDir)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.archive = archive
	return nil
}

// course loads the terrain named by args, or the configured course.
func (a *app) course(args []string) (string, *kcl.Data, error) {
	name := a.cfg.Course
	if len(args) > 0 {
		name = args[0]
	}
	data, err := a.archive.LoadKCL(name)
	if err != nil {
		return name, nil, err
	}
	return name, data, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
