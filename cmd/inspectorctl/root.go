package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tgfxgo/inspector/metrics"
	"github.com/tgfxgo/inspector/telemetrylog"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "inspectorctl",
		Short:         "Operator CLI for the inspector telemetry subsystem",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().String("metrics-addr", "", "serve /metrics on this address while the command runs (empty disables it)")
	cmd.PersistentFlags().Bool("verbose", false, "enable debug-level logging")
	_ = v.BindPFlags(cmd.PersistentFlags())
	v.SetEnvPrefix("INSPECTORCTL")
	v.AutomaticEnv()

	cmd.AddCommand(
		newDiscoverCmd(v),
		newRecordCmd(v),
		newReplayCmd(v),
	)
	return cmd
}

func newLogger(v *viper.Viper) *zap.Logger {
	level := "info"
	if v.GetBool("verbose") {
		level = "debug"
	}
	l, err := telemetrylog.New(level)
	if err != nil {
		return telemetrylog.Noop()
	}
	return l
}

// maybeServeMetrics starts a /metrics endpoint on addr if non-empty and
// returns a shutdown func; otherwise it's a no-op.
func maybeServeMetrics(addr string, logger *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return func() { _ = srv.Close() }
}
