package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gosupplicant/internal/supplicant"
)

func disconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <ifname>",
		Short: "Disconnect an interface from its current network",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ifname := args[0]
			return withReplica(context.Background(), func(r *supplicant.Replica) error {
				iface, err := resolveInterface(r, ifname)
				if err != nil {
					return err
				}
				done := make(chan error, 1)
				if err := r.Disconnect(iface, func(err error) { done <- err }); err != nil {
					return fmt.Errorf("disconnect %s: %w", ifname, err)
				}
				if err := <-done; err != nil {
					return fmt.Errorf("disconnect %s: %w", ifname, err)
				}
				fmt.Printf("%s disconnected\n", ifname)
				return nil
			})
		},
	}
}
