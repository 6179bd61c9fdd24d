package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formation/pkg/settings"
)

const defaultSettingsFile = appName + ".toml"

// initCommand creates the init command, which writes a settings file
// populated with every default.
func (c *CLI) initCommand() *cobra.Command {
	var (
		flags layoutFlags
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a settings file with all defaults",
		Long: `Write a settings file with all defaults.

The file lists every formation, solver and scene key so it can be edited in
place. Flags such as --shape and --instances are applied before writing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultSettingsFile
			if len(args) > 0 {
				path = args[0]
			}
			// Flags apply on top of the defaults, never on top of an
			// existing file at path.
			opts, err := flags.options(cmd, nil)
			if err != nil {
				return err
			}
			return writeSettings(path, settings.File{
				Formation: opts.Settings,
				Solver:    opts.Tuning,
				Scene:     opts.Scene,
			}, force)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func writeSettings(path string, f settings.File, force bool) error {
	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	fh, err := os.OpenFile(path, flag, 0o644)
	if os.IsExist(err) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err != nil {
		return err
	}
	if err := settings.Encode(fh, f); err != nil {
		fh.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := fh.Close(); err != nil {
		return err
	}

	printSuccess("Settings written")
	printFile(path)
	printNewline()
	printNextStep("Compute", appName+" layout "+path)
	return nil
}
