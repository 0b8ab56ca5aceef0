package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stumpfworks/asterisk-ami/internal/api"
	"github.com/stumpfworks/asterisk-ami/internal/config"
	"github.com/stumpfworks/asterisk-ami/pkg/ami"
	"github.com/stumpfworks/asterisk-ami/pkg/cli"
)

// ConnectCmd opens a long-lived AMI connection, optionally serving
// the status API alongside it, and blocks until the client reaches a
// terminal Disconnected state or the process receives an interrupt.
func ConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to Asterisk and stay connected",
		RunE: func(cmd *cobra.Command, args []string) error {
			amiCfg, apiCfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			withAPI, _ := cmd.Flags().GetBool("api")
			return runConnect(amiCfg, apiCfg, withAPI)
		},
	}
	addConnectionFlags(cmd)
	cmd.Flags().Bool("api", false, "start the status/event HTTP API alongside the connection")
	return cmd
}

func runConnect(amiCfg ami.Config, apiCfg config.APIConfig, withAPI bool) error {
	cli.PrintHeader("amictl connect")

	client := ami.NewClient(amiCfg)

	client.RegisterEvent([]string{"*"}, func(p *ami.Packet) {
		ev, _ := p.Get("Event")
		cli.PrintInfo("event: %s", ev)
	})

	var apiServer *api.Server
	if withAPI || apiCfg.Enabled {
		apiServer = api.NewServer(client, apiCfg)
		go func() {
			if err := apiServer.Start(); err != nil {
				log.Error().Err(err).Msg("status api stopped")
			}
		}()
	}

	connDone := make(chan error, 1)
	go func() { connDone <- client.Connect() }()

	stateWatch := make(chan struct{})
	go watchConnectionState(client, stateWatch)
	defer close(stateWatch)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var connectErr error
	select {
	case connectErr = <-connDone:
		if connectErr != nil {
			cli.PrintError("connection ended: %v", connectErr)
		} else {
			cli.PrintSuccess("session closed cleanly (idle auto-close)")
		}
	case <-sigCh:
		cli.PrintInfo("shutting down...")
		if err := client.Close(); err != nil {
			cli.PrintWarning("close: %v", err)
		}
		<-connDone
	}

	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("status api shutdown")
		}
	}

	return connectErr
}

// watchConnectionState polls the client's lifecycle State and prints a
// colored summary via cli.PrintConnectionState each time it changes,
// until done is closed.
func watchConnectionState(client *ami.Client, done <-chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var last ami.State
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			state := client.State()
			if state == last {
				continue
			}
			last = state
			cli.PrintConnectionState(string(state), client.ConnectionState().Banner)
		}
	}
}
