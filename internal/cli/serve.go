package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/formation/internal/server"
	"github.com/matzehuels/formation/pkg/pipeline"
)

// serveCommand creates the serve command, which runs the HTTP inspector.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags  layoutFlags
		addr   string
		buffer int
	)

	cmd := &cobra.Command{
		Use:   "serve [settings.toml]",
		Short: "Serve a live formation engine over HTTP",
		Long: `Serve a live formation engine over HTTP.

The inspector exposes the current layout as JSON and rendered images, lets
clients claim and release slots, change settings and move the host. Rendered
images are cached with the backend selected by --cache.

Stop the server with Ctrl+C; in-flight requests are allowed to finish.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, args)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), opts, addr, buffer)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&addr, "addr", "a", server.DefaultAddr, "listen address")
	cmd.Flags().IntVar(&buffer, "event-buffer", 0, "events held between polls of /v1/events (0 uses the default)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts pipeline.Options, addr string, buffer int) error {
	runner, err := c.newRunner(ctx)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv, err := server.New(server.Config{
		Options:     opts,
		Runner:      runner,
		Logger:      c.Logger,
		EventBuffer: buffer,
	})
	if err != nil {
		return err
	}

	total, _ := srv.Engine().SlotCount()
	printSuccess("Inspector ready")
	printKeyValue("Address", "http://"+addr)
	printKeyValue("Layout", fmt.Sprintf("%s · %s", opts.Settings.Shape, plural(total, "slot")))
	printNewline()
	printNextStep("Try", "curl http://"+addr+"/v1/layout")

	return srv.ListenAndServe(ctx, addr)
}
