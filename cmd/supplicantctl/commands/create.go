package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gosupplicant/internal/supplicant"
)

func createInterfaceCmd() *cobra.Command {
	var driver string

	cmd := &cobra.Command{
		Use:   "create-interface <ifname>",
		Short: "Ask the peer to manage a wireless interface",
		Long:  "Adopts the interface if the peer already manages it, otherwise asks the peer to create it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ifname := args[0]
			return withReplica(context.Background(), func(r *supplicant.Replica) error {
				done := make(chan error, 1)
				err := r.CreateInterface(ifname, driver, func(iface *supplicant.Interface, err error) {
					if err != nil {
						done <- err
						return
					}
					fmt.Printf("interface ready: path=%s ifname=%s driver=%s\n", iface.Path, iface.Ifname, iface.Driver)
					done <- nil
				})
				if err != nil {
					return fmt.Errorf("create-interface %s: %w", ifname, err)
				}
				return <-done
			})
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "driver to pin the interface to, if any")

	return cmd
}
