// Package commands implements the supplicantctl CLI commands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/dantte-lp/gosupplicant/internal/supplicant"
)

var (
	// serviceName overrides the peer's well-known bus name.
	serviceName string

	// connectTimeout bounds how long a command waits for SystemReady before
	// giving up.
	connectTimeout time.Duration

	// outputFormat controls the output format for listing commands (table
	// or json).
	outputFormat string
)

// rootCmd is the top-level cobra command for supplicantctl.
var rootCmd = &cobra.Command{
	Use:           "supplicantctl",
	Short:         "CLI client for the wpa_supplicant peer tracked by supplicantd",
	Long:          "supplicantctl talks to the wpa_supplicant peer directly over the system D-Bus to issue control operations and observe replica events.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serviceName, "service-name", supplicant.ServiceName,
		"wpa_supplicant peer bus name")
	rootCmd.PersistentFlags().DurationVar(&connectTimeout, "timeout", 5*time.Second,
		"time to wait for the peer to become ready")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(disconnectCmd())
	rootCmd.AddCommand(createInterfaceCmd())
	rootCmd.AddCommand(setDebugCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withReplica dials the system bus, runs a Replica's dispatch loop in the
// background until SystemReady fires (or connectTimeout elapses), invokes
// fn with the ready replica, then tears the replica down. Every one-shot
// supplicantctl command (everything except monitor, which stays up) follows
// this same connect-act-disconnect shape.
func withReplica(ctx context.Context, fn func(r *supplicant.Replica) error) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("dial system bus: %w", err)
	}
	defer conn.Close()

	ready := make(chan struct{})
	var readyOnce sync.Once
	repl := supplicant.NewReplica(supplicant.ReplicaConfig{
		Conn:        conn,
		ServiceName: serviceName,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Callbacks: supplicant.Callbacks{
			SystemReady: func() { readyOnce.Do(func() { close(ready) }) },
		},
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- repl.Run(runCtx) }()

	select {
	case <-ready:
	case <-time.After(connectTimeout):
		return fmt.Errorf("timed out after %s waiting for peer to become ready", connectTimeout)
	case err := <-runDone:
		if err != nil {
			return fmt.Errorf("replica stopped before becoming ready: %w", err)
		}
		return fmt.Errorf("replica stopped before becoming ready")
	}

	fnErr := fn(repl)
	cancel()
	<-runDone
	return fnErr
}

// resolveInterface finds the named interface in the running replica, or
// returns a descriptive error if it isn't tracked.
func resolveInterface(r *supplicant.Replica, ifname string) (*supplicant.Interface, error) {
	iface, ok := r.InterfaceByName(ifname)
	if !ok {
		return nil, fmt.Errorf("interface %q not found in replica", ifname)
	}
	return iface, nil
}
