package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gosupplicant/internal/supplicant"
)

func setDebugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-debug <level>",
		Short: "Set the peer's debug verbosity level",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var level int32
			if _, err := fmt.Sscanf(args[0], "%d", &level); err != nil {
				return fmt.Errorf("parse level %q: %w", args[0], err)
			}
			return withReplica(context.Background(), func(r *supplicant.Replica) error {
				if err := r.SetDebugLevel(level); err != nil {
					return fmt.Errorf("set-debug %d: %w", level, err)
				}
				fmt.Printf("debug level set to %d\n", level)
				return nil
			})
		},
	}
}
