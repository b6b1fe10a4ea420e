package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/caarlos0/env"
	"github.com/solr2/lightserver/internal/device"
	"github.com/solr2/lightserver/internal/logging"
	"github.com/solr2/lightserver/internal/server"
	"github.com/spf13/cobra"
)

var (
	logger = logging.New("main")
	config = server.Config{}
)

func main() {
	defer logger.Sync()

	if err := env.Parse(&config); err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to parse environment variables")
	}

	cmd := &cobra.Command{
		Use:   "lightserver",
		Short: "Drive the SOL-R2 LED pair over bulk USB",
		Long: `Accepts LED commands (side, LED expression, color, effect) directly or over ` +
			`a TCP line protocol and streams the resulting frames to the LEFT/RIGHT ` +
			`device pair, pacing bulk-USB writes and animating BLINK/FADE/RAINBOW ` +
			`effects per LED.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(config)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&config.Debug, "debug", config.Debug, "log received commands, state transitions and raw packets")
	flags.BoolVar(&config.DryRun, "dry-run", config.DryRun, "log packets instead of writing to USB")
	flags.StringVar(&config.ListenAddr, "listen", config.ListenAddr, "TCP command listener address")
	flags.IntVar(&config.TxDelayMs, "tx-delay-ms", config.TxDelayMs, "minimum delay between USB transmissions")
	flags.IntVar(&config.StreamIntervalMs, "stream-interval-ms", config.StreamIntervalMs, "effect advance cadence")
	flags.IntVar(&config.IdleTimeoutMs, "stream-idle-timeout-ms", config.IdleTimeoutMs, "stop streaming after this long without commands or effects")
	flags.IntVar(&config.Repeat, "repeat", config.Repeat, "stop after N transmitter cycles, 0 runs forever")
	flags.IntVar(&config.MaxEntries, "max-entries", config.MaxEntries, "command queue capacity")
	flags.IntVar(&config.USBTimeoutMs, "usb-timeout-ms", config.USBTimeoutMs, "bulk write deadline")

	if err := cmd.Execute(); err != nil {
		logger.With(zap.Error(err)).Fatal("Light server failed")
	}
}

func run(config server.Config) error {
	if config.Debug {
		logging.SetDefaultLevel(zapcore.DebugLevel)
	}

	logger.With(zap.Any("config", config)).Info("Starting SOL-R2 light server")
	logger.Info("Adjust STREAM_INTERVAL_MS to change how often effects advance.")
	logger.Info("Adjust TX_DELAY_MS to slow the USB write rate; sequential sends use it as the caterpillar stagger.")
	logger.Info("Use DRY_RUN=true to inspect packets without hardware attached.")
	logger.Info("Press Ctrl+C to stop")

	var link device.Link
	if config.DryRun {
		link = device.NewDryRun()
	} else {
		link = device.NewUSB(config.USBTimeout())
	}

	srv, err := server.New(config, link)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		return err
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-shutdown:
		logger.Info("Shutting down")
	case <-srv.Done():
		// --repeat ran its cycles
	}
	srv.Stop()
	return nil
}
