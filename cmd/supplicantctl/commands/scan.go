package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gosupplicant/internal/supplicant"
)

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <ifname>",
		Short: "Request a passive scan on an interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ifname := args[0]
			return withReplica(context.Background(), func(r *supplicant.Replica) error {
				iface, err := resolveInterface(r, ifname)
				if err != nil {
					return err
				}
				done := make(chan error, 1)
				if err := r.Scan(iface, func(err error) { done <- err }); err != nil {
					return fmt.Errorf("scan %s: %w", ifname, err)
				}
				if err := <-done; err != nil {
					return fmt.Errorf("scan %s: %w", ifname, err)
				}
				fmt.Printf("scan requested on %s\n", ifname)
				return nil
			})
		},
	}
}
