package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tgfxgo/inspector/capture"
	"github.com/tgfxgo/inspector/consumer"
	"github.com/tgfxgo/inspector/model"
)

func newRecordCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <producer-addr>",
		Short: "Dial a producer, stream a session, and save it to a capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(v)
			defer func() { _ = logger.Sync() }()
			stopMetrics := maybeServeMetrics(v.GetString("metrics-addr"), logger)
			defer stopMetrics()

			out, _ := cmd.Flags().GetString("output")
			duration, _ := cmd.Flags().GetDuration("duration")
			dialTimeout, _ := cmd.Flags().GetDuration("dial-timeout")

			c, err := consumer.Dial(args[0],
				consumer.WithDialTimeout(dialTimeout),
				consumer.WithLogger(logger),
			)
			if err != nil {
				return fmt.Errorf("dial %s: %w", args[0], err)
			}

			runErr := make(chan error, 1)
			go func() { runErr <- c.Run() }()

			timer := time.NewTimer(duration)
			defer timer.Stop()

			select {
			case <-timer.C:
				c.Shutdown()
				<-c.Done()
			case err := <-runErr:
				if err != nil {
					return fmt.Errorf("session ended: %w", err)
				}
			}

			var data []byte
			c.WithBuilder(func(b *model.Builder) {
				data = capture.Save(b)
			})
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s: wrote %d bytes to %s\n", c.SessionID, len(data), out)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "capture.bin", "output capture file path")
	cmd.Flags().Duration("duration", 10*time.Second, "how long to record before stopping")
	cmd.Flags().Duration("dial-timeout", 5*time.Second, "TCP dial timeout")
	return cmd
}
