package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tgfxgo/inspector/discovery"
	"github.com/tgfxgo/inspector/wire"
)

func newDiscoverCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Listen for producer beacons and print live clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(v)
			defer func() { _ = logger.Sync() }()
			stopMetrics := maybeServeMetrics(v.GetString("metrics-addr"), logger)
			defer stopMetrics()

			basePort, _ := cmd.Flags().GetInt("base-port")
			broadcastNum, _ := cmd.Flags().GetInt("broadcast-num")
			duration, _ := cmd.Flags().GetDuration("duration")

			listeners := make([]*discovery.Listener, 0, broadcastNum)
			for i := 0; i < broadcastNum; i++ {
				l, err := discovery.Listen(basePort+i, logger)
				if err != nil {
					for _, done := range listeners {
						_ = done.Close()
					}
					return fmt.Errorf("listen on port %d: %w", basePort+i, err)
				}
				listeners = append(listeners, l)
			}
			defer func() {
				for _, l := range listeners {
					_ = l.Close()
				}
			}()

			deadline := time.After(duration)
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()

			seen := map[string]discovery.Client{}
			for {
				select {
				case <-deadline:
					printClients(cmd, seen)
					return nil
				case <-ticker.C:
					for _, l := range listeners {
						for addr, c := range l.Snapshot() {
							seen[addr] = c
						}
					}
				}
			}
		},
	}
	cmd.Flags().Int("base-port", wire.BasePort, "lowest UDP port to listen for beacons on")
	cmd.Flags().Int("broadcast-num", 8, "number of consecutive ports to listen on")
	cmd.Flags().Duration("duration", 5*time.Second, "how long to listen before printing results")
	return cmd
}

func printClients(cmd *cobra.Command, clients map[string]discovery.Client) {
	if len(clients) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no producers found")
		return
	}
	for addr, c := range clients {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\tprogram=%s\tpid=%d\tlast_seen=%s\n",
			addr, c.ProgramName, c.Pid, c.LastSeen.Format(time.RFC3339))
	}
}
