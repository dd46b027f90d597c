package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gosupplicant/internal/supplicant"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List interfaces tracked by the peer and their networks",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withReplica(context.Background(), func(r *supplicant.Replica) error {
				out, err := formatInterfaces(r.Interfaces(), outputFormat)
				if err != nil {
					return err
				}
				fmt.Print(out)
				return nil
			})
		},
	}
}
