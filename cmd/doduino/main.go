// Command doduino drives the house lighting: it polls push-buttons, dims
// PWM light channels and switches relays, and exposes the channels over
// HTTP and MQTT.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tarm/serial"

	"github.com/adebree/doduino/internal/config"
)

const defaultConfigPath = "/etc/doduino.yaml"

var (
	configPath    string
	dryRun        bool
	installPrefix string
	installReset  bool

	mainCmd = &cobra.Command{
		Use:           "doduino",
		Short:         "Button, dimmer and relay controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the control loop",
		RunE:  runDaemon,
	}
	stateCmd = &cobra.Command{
		Use:   "state",
		Short: "Print the current button levels and exit",
		RunE:  runState,
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and exit",
		RunE:  runConfig,
	}
	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Install the binary, a systemd unit and the default config",
		RunE:  runInstall,
	}
)

func main() {
	mainCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, `Config path ("" uses the built-in default)`)
	mainCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Use simulated hardware instead of GPIO and I2C")
	installCmd.Flags().StringVarP(&installPrefix, "prefix", "p", "", "Install prefix, default is /")
	installCmd.Flags().BoolVar(&installReset, "reset", false, "Overwrite an existing config with the default")
	mainCmd.AddCommand(runCmd, stateCmd, configCmd, installCmd)

	if err := mainCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

// loadConfig reads the config file, falling back to the built-in default
// when the default path does not exist yet.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if path == "" {
		log.Info().Msg("using built-in default config")
	} else {
		log.Info().Str("config", path).Msg("loaded config")
	}
	return cfg, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	closer, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	return run(cfg, dryRun)
}

func runState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return printState(cmd.OutOrStdout(), cfg, dryRun)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runInstall(cmd *cobra.Command, args []string) error {
	if err := install(installPrefix, configPath, installReset); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	return nil
}

// setupLogging configures the global logger. When a serial port is set the
// log stream is mirrored to it; the returned Closer releases the port.
func setupLogging(cfg config.LogConfig) (io.Closer, error) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	var closer io.Closer
	if cfg.SerialPort != "" {
		port, err := serial.OpenPort(&serial.Config{Name: cfg.SerialPort, Baud: cfg.SerialBaud})
		if err != nil {
			return nil, fmt.Errorf("open serial console %s: %w", cfg.SerialPort, err)
		}
		out = io.MultiWriter(os.Stderr, port)
		closer = port
	}

	if cfg.JSON {
		// JSON output for production
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !cfg.Colors || cfg.SerialPort != "",
		})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return closer, nil
}
