package main

import (
	"github.com/spf13/cobra"

	"snapshotfetcher/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload, run and download HTTP API",
	RunE:  runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config, 8080)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, coord, err := setup()
	if err != nil {
		return err
	}

	port := cfg.Port
	if servePort > 0 {
		port = servePort
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := server.New(server.Config{
		Port:      port,
		SheetName: cfg.SheetName,
	}, coord)

	return srv.Start(ctx)
}
