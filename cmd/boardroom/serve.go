package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/boardroom-ai/boardroom/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the debate API server",
	RunE:  runServe,
}

var (
	serveConfigPath string
	serveAddr       string
	serveDBPath     string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "boardroom.toml", "Config file path")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address or port")
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "Session database path")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := server.LoadConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if serveDBPath != "" {
		cfg.Server.DatabasePath = serveDBPath
	}
	addr, err := server.ResolveAddr(cfg, serveAddr)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "boardroom: ", log.LstdFlags)
	srv, err := server.NewServer(server.ServerOptions{
		Config: cfg,
		Addr:   addr,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	logger.Printf("listening on %s", addr)
	return srv.Serve(addr)
}
