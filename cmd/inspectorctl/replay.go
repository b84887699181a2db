package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tgfxgo/inspector/capture"
)

func newReplayCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <capture-file>",
		Short: "Load a capture file and print a summary of its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			b, err := capture.Load(data, 0)
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}

			sessionID := b.SessionID
			if sessionID == "" {
				sessionID = "(none)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session=%s frames=%d op_tasks=%d properties=%d names=%d\n",
				sessionID, len(b.Frames.Events), len(b.OpTasks), len(b.Props), b.Names.Len())
			return nil
		},
	}
	return cmd
}
