package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"medrag/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP question-answering API",
	Long: `Serve /chat, /retrieve, /stats and /health until interrupted.

Examples:
  medrag serve
  medrag serve --addr :9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	p, err := openPipeline(cfg, true)
	if err != nil {
		return err
	}
	defer p.Close()

	srv := server.New(cfg.Server, p.answer, p.retrieve, p.store, slog.Default())
	return srv.Run(cmd.Context())
}
