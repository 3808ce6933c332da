// Package cmd implements the morsectl command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-morsectl/config"
	"github.com/moffa90/go-morsectl/dispatch"
	"github.com/moffa90/go-morsectl/emulator"
	"github.com/moffa90/go-morsectl/internal/logging"
	"github.com/moffa90/go-morsectl/internal/output"
	"github.com/moffa90/go-morsectl/metrics"
	"github.com/moffa90/go-morsectl/protocol"
	"github.com/moffa90/go-morsectl/transport"
)

// morsectlVersion is set at build time via
// -ldflags "-X github.com/moffa90/go-morsectl/cmd/morsectl/cmd.morsectlVersion=x.y.z"
var morsectlVersion = "0.1.0"

// Exit codes.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitFailure = 2
)

// InterfaceHeader carries the interface name to a remote server.
const InterfaceHeader = "Morse-Interface"

// TransportFactory builds the transport selected by cfg.
type TransportFactory func(cfg config.Config) (transport.Transport, error)

var transportFactory TransportFactory = newTransport

// SetTransportFactory allows tests to inject a transport.
func SetTransportFactory(f TransportFactory) {
	if f == nil {
		f = newTransport
	}
	transportFactory = f
}

// app is the state shared by one command tree.
type app struct {
	// Global flags
	cfgFile       string
	transportName string
	iface         string
	interfaceID   uint16
	outputFormat  string
	metricsFile   string
	serialPort    string
	baud          int
	remoteURL     string
	debug         bool

	// Set during PersistentPreRunE
	cfg       config.Config
	logger    zerolog.Logger
	formatter output.Formatter
	gatherer  *prometheus.Registry
	collector *metrics.Collector
}

// usageError is a command line mistake caught before any command runs.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// RootCmd returns a fresh morsectl command tree.
func RootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "morsectl",
		Short: "Control a Morse Micro HaLow chip",
		Long: `morsectl sends control commands to a Morse Micro chip, either through
the network driver (remote), a serial bridge wired straight to the chip
(serial), or the built-in chip emulator (loopback).`,
		Version:           morsectlVersion,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.preRun,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "configfile", "f", "", "config file (default $"+config.EnvFile+")")
	flags.StringVarP(&a.transportName, "transport", "t", "", "transport: loopback, serial, remote (default \"loopback\")")
	flags.StringVarP(&a.iface, "interface", "i", "", "network interface (default \""+config.DefaultInterface+"\")")
	flags.Uint16Var(&a.interfaceID, "interface-id", 0, "interface id written into command headers")
	flags.StringVarP(&a.outputFormat, "output", "o", "", "output format: table, json, yaml (default \"table\")")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	flags.StringVar(&a.serialPort, "serial-port", "", "serial bridge device")
	flags.IntVar(&a.baud, "baud", 0, "serial bridge baud rate")
	flags.StringVar(&a.remoteURL, "url", "", "remote server websocket url")
	flags.BoolVarP(&a.debug, "debug", "d", false, "show debug messages")

	root.AddCommand(chipCommands(a)...)
	root.AddCommand(newResetCmd(a), newCommandsCmd(a), newServeCmd(a))
	return root
}

// preRun loads the config file, applies flag overrides and builds the
// logger, formatter and metrics collector.
func (a *app) preRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return &usageError{err: err}
	}

	flags := cmd.Flags()
	if a.transportName != "" {
		kind, err := config.ParseTransport(a.transportName)
		if err != nil {
			return &usageError{err: err}
		}
		cfg.Transport = kind
	}
	if a.iface != "" {
		cfg.Interface = a.iface
	}
	if flags.Changed("interface-id") {
		cfg.InterfaceID = a.interfaceID
	}
	if a.outputFormat != "" {
		cfg.Output = strings.ToLower(a.outputFormat)
	}
	if a.serialPort != "" {
		cfg.Serial.Port = a.serialPort
	}
	if a.baud > 0 {
		cfg.Serial.Baud = a.baud
	}
	if a.remoteURL != "" {
		cfg.Remote.URL = a.remoteURL
	}
	if a.debug {
		cfg.LogLevel = zerolog.LevelDebugValue
	}
	if !output.Valid(cfg.Output) {
		return &usageError{err: fmt.Errorf("unknown output format %q", cfg.Output)}
	}
	a.cfg = cfg

	a.logger, err = logging.New(logging.Options{
		App:   "morsectl",
		Level: cfg.LogLevel,
		Out:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return &usageError{err: err}
	}

	a.formatter = output.NewFormatter(cfg.Output)

	a.gatherer = prometheus.NewRegistry()
	a.collector, err = metrics.New(a.gatherer)
	if err != nil {
		return err
	}
	return nil
}

// session opens a dispatcher on the configured transport, runs fn and
// closes it again. Metrics are written afterwards when requested.
func (a *app) session(ctx context.Context, fn func(d *dispatch.Dispatcher) error) (err error) {
	if err := a.cfg.Validate(); err != nil {
		return &usageError{err: err}
	}
	tp, err := transportFactory(a.cfg)
	if err != nil {
		return err
	}

	d := dispatch.New(tp,
		dispatch.WithLogger(logging.NewAdapter(a.logger)),
		dispatch.WithObserver(a.collector),
		dispatch.WithInterfaceID(a.cfg.InterfaceID),
		dispatch.WithTimeout(a.cfg.Timeout),
	)

	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if a.metricsFile != "" {
			if werr := metrics.WriteFile(a.metricsFile, a.gatherer); werr != nil && err == nil {
				err = werr
			}
		}
	}()

	a.logger.Debug().
		Str("transport", string(tp.Kind())).
		Str("interface", a.cfg.Interface).
		Msg("opening interface")
	if err := d.Open(ctx); err != nil {
		return err
	}
	return fn(d)
}

// print renders v through the selected formatter.
func (a *app) print(cmd *cobra.Command, v any) {
	fmt.Fprint(cmd.OutOrStdout(), a.formatter.Format(v))
}

// newTransport builds the transport named by cfg.
func newTransport(cfg config.Config) (transport.Transport, error) {
	var tp transport.Transport
	switch cfg.Transport {
	case transport.KindLoopback:
		tp = transport.NewLoopback(emulator.New())
	case transport.KindSerial:
		tp = transport.NewSerial(cfg.Serial.Port, cfg.Serial.Baud,
			transport.WithSerialTimeout(cfg.Timeout))
	case transport.KindRemote:
		tp = transport.NewRemote(cfg.Remote.URL,
			transport.WithRemoteTimeout(cfg.Timeout),
			transport.WithHeader(http.Header{InterfaceHeader: []string{cfg.Interface}}))
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if cfg.RateLimit.Enabled() {
		tp = transport.NewRateLimited(tp, cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	}
	return tp, nil
}

// ExitCode maps an error to the process exit status. Argument mistakes
// and commands the transport cannot carry exit 1; every other failure
// exits 2.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var uErr *usageError
	if errors.As(err, &uErr) {
		return ExitUsage
	}
	switch protocol.KindOf(err) {
	case protocol.KindValidation, protocol.KindCapability:
		return ExitUsage
	default:
		return ExitFailure
	}
}

// Execute runs the root command and exits with ExitCode on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(ExitCode(err))
	}
}
