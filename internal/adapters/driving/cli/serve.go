package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intentflow/internal/adapters/driving/rest"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the JSON HTTP API.

The listen address comes from server.host and server.port in the config
file, or PORT in the environment. --port overrides both.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (0 = use settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	settings := *a.settings
	if servePort > 0 {
		settings.Server.Port = servePort
	}

	server, err := rest.NewServer(a.intents, settings)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "HTTP API listening on http://%s\n", settings.Server.Addr())
	return server.Run(cmd.Context())
}
