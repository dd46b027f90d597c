package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/dantte-lp/gosupplicant/internal/supplicant"
)

func monitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Stream replica events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMonitor()
		},
	}
}

// runMonitor drives a long-lived replica, printing each callback event as it
// fires, until SIGINT/SIGTERM.
func runMonitor() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("dial system bus: %w", err)
	}
	defer conn.Close()

	repl := supplicant.NewReplica(supplicant.ReplicaConfig{
		Conn:        conn,
		ServiceName: serviceName,
		Logger:      slog.New(slog.DiscardHandler),
		Callbacks:   monitorCallbacks(),
	})

	err = repl.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}

func monitorCallbacks() supplicant.Callbacks {
	ts := func() string { return time.Now().Format(time.RFC3339) }
	return supplicant.Callbacks{
		SystemReady: func() {
			fmt.Printf("[%s] peer ready\n", ts())
		},
		SystemKilled: func() {
			fmt.Printf("[%s] peer lost\n", ts())
		},
		InterfaceAdded: func(iface *supplicant.Interface) {
			fmt.Printf("[%s] interface added: ifname=%s path=%s\n", ts(), iface.Ifname, iface.Path)
		},
		InterfaceRemoved: func(iface *supplicant.Interface) {
			fmt.Printf("[%s] interface removed: ifname=%s path=%s\n", ts(), iface.Ifname, iface.Path)
		},
		ScanStarted: func(iface *supplicant.Interface) {
			fmt.Printf("[%s] scan started: ifname=%s\n", ts(), iface.Ifname)
		},
		ScanFinished: func(iface *supplicant.Interface) {
			fmt.Printf("[%s] scan finished: ifname=%s\n", ts(), iface.Ifname)
		},
		NetworkAdded: func(net *supplicant.Network) {
			fmt.Printf("[%s] network added: group=%s name=%s\n", ts(), net.Group, net.Name)
		},
		NetworkRemoved: func(net *supplicant.Network) {
			fmt.Printf("[%s] network removed: group=%s name=%s\n", ts(), net.Group, net.Name)
		},
	}
}
