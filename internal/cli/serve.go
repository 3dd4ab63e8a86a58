package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harun/switchboard/pkg/gateway"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway server",
	Long: `Run the HTTP gateway: POST /v1/turns for single-shot turns, a
websocket chat channel on /v1/chat, plus /healthz and /metrics. The retention
sweeper and catalog watcher run alongside when enabled in config.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.seedCatalog(cmd.Context()); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	if err := rt.startBackground(); err != nil {
		return err
	}

	server, err := gateway.NewServer(gateway.Config{
		Host:         cfg.Gateway.Host,
		Port:         cfg.Gateway.Port,
		SharedSecret: cfg.Gateway.SharedSecret,
		Engine:       rt.engine,
		Logger:       rt.log.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	if err := server.Start(); err != nil {
		return err
	}
	fmt.Printf("Gateway listening on %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	return server.Stop()
}
