package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/adebree/doduino/internal/command"
	"github.com/adebree/doduino/internal/config"
	"github.com/adebree/doduino/internal/gpio"
	"github.com/adebree/doduino/internal/logic"
	"github.com/adebree/doduino/internal/mqtt"
	"github.com/adebree/doduino/internal/status"
	"github.com/adebree/doduino/internal/web"
)

func run(cfg *config.Config, dryRun bool) error {
	inst, err := cfg.Installation()
	if err != nil {
		return err
	}
	names := channelNames(cfg)
	instanceID := uuid.NewString()

	board, err := openBoard(cfg, dryRun)
	if err != nil {
		return err
	}
	defer func() {
		if err := board.Close(); err != nil {
			log.Error().Err(err).Msg("close hardware")
		}
	}()

	start := time.Now()
	wsBroker := ""
	if cfg.MQTT.Broker != "" {
		wsBroker = resolveWSBroker(cfg.HTTP.WSBroker, cfg.MQTT.Broker)
	}
	tracker := status.NewTracker(start, instanceID, status.Config{
		PollMs:      cfg.Poll.Duration().Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Duration().Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		Prefix:      mqtt.NewTopics(cfg.MQTT.Prefix).Prefix(),
		HTTPAddr:    cfg.HTTP.Addr,
		WSBroker:    wsBroker,
	}, names)
	commands := command.NewQueue(cfg.Commands.QueueSize, len(inst.Lights), len(inst.Switches))

	// Initialize MQTT
	var publisher mqtt.Publisher = discardPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		clientID := cfg.MQTT.ClientID
		if clientID == "" {
			clientID = "doduino-" + instanceID[:8]
		}
		client, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:             cfg.MQTT.Broker,
			ClientID:           clientID,
			Username:           cfg.MQTT.Username,
			Password:           cfg.MQTT.Password,
			Prefix:             cfg.MQTT.Prefix,
			BufferSize:         cfg.MQTT.BufferSize,
			Commands:           commands,
			OnConnectionChange: tracker.SetMQTTConnected,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher, mqttStatus = client, client
	}
	defer publisher.Close()

	reporter := mqtt.NewReporter(publisher, start, names.Lights, names.Switches, cfg.MQTT.BufferSize)
	tracers := logic.Tracers{reporter}
	if cfg.Log.Trace {
		tracers = append(tracers, newLogTracer(log.Logger, names))
	}
	ctrl, err := logic.New(inst, board, 0, logic.WithTracer(tracers))
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}
	tracker.Update(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	reporterDone := make(chan struct{})
	go func() {
		reporter.Run(ctx)
		close(reporterDone)
	}()
	defer func() {
		cancel()
		<-reporterDone
		if n := reporter.Dropped(); n > 0 {
			log.Warn().Uint64("dropped", n).Msg("state events dropped")
		}
	}()

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Error().Err(err).Msg("publish startup event")
	}

	// Start HTTP server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, commands)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http server listening")
	}

	log.Info().
		Str("instance", instanceID).
		Dur("poll", cfg.Poll.Duration()).
		Int("lights", len(inst.Lights)).
		Int("switches", len(inst.Switches)).
		Int("buttons", len(inst.Buttons)).
		Str("broker", cfg.MQTT.Broker).
		Bool("dry_run", dryRun).
		Msg("started")

	ticker := time.NewTicker(cfg.Poll.Duration())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loop{
		ctrl:       ctrl,
		commands:   commands,
		tracker:    tracker,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		heartbeat:  cfg.MQTT.Heartbeat.Duration(),
		start:      start,
	}, time.Now, ticker.C, sigCh)
}

// loop holds what runLoop drives.
type loop struct {
	ctrl       *logic.Controller
	commands   *command.Queue
	tracker    *status.Tracker
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	heartbeat  time.Duration         // 0 disables
	start      time.Time             // wall time of controller offset zero
}

// runLoop ticks the controller until a signal arrives. Every tick moves the
// controller clock, applies pending commands at that time, then runs the
// controller and refreshes the tracker.
func runLoop(l loop, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := l.start

	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			reason := signalName(s)
			if l.mqttStatus != nil {
				l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
			}
			snap := l.tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     reason,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
			}
			if err := l.publisher.PublishSystem(event); err != nil {
				log.Error().Err(err).Msg("publish shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			offset := t.Sub(l.start)
			l.ctrl.Advance(offset)
			l.commands.Drain(l.ctrl)
			l.ctrl.Tick(offset)
			l.tracker.Update(l.ctrl)
			if l.mqttStatus != nil {
				l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
			}

			if l.heartbeat > 0 && t.Sub(lastHeartbeat) >= l.heartbeat {
				lastHeartbeat = t
				snap := l.tracker.Snapshot()
				log.Info().
					Dur("uptime", t.Sub(l.start)).
					Uint64("ticks", snap.Ticks).
					Int("queued", len(snap.Queue)).
					Msg("heartbeat")
				hb := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := l.publisher.PublishSystem(hb); err != nil {
					log.Warn().Err(err).Msg("publish heartbeat")
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func openBoard(cfg *config.Config, dryRun bool) (gpio.Board, error) {
	if dryRun {
		log.Warn().Msg("dry run: using simulated hardware")
		return gpio.NewFake(), nil
	}
	board, err := gpio.NewReal(hardwareOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("init hardware: %w", err)
	}
	return board, nil
}

func hardwareOptions(cfg *config.Config) gpio.Options {
	opts := gpio.Options{
		Chip:         cfg.Hardware.Chip,
		PullDown:     cfg.Hardware.PullDown,
		I2CBus:       cfg.Hardware.I2CBus,
		PWMAddress:   cfg.Hardware.PWMAddress,
		PWMFrequency: cfg.Hardware.PWMFrequency,
	}
	for _, l := range cfg.Lights {
		opts.Lights = append(opts.Lights, l.Pin)
	}
	for _, s := range cfg.Switches {
		opts.Switches = append(opts.Switches, gpio.Line{Pin: s.Pin, ActiveLow: s.ActiveLow})
	}
	for _, b := range cfg.Buttons {
		opts.Buttons = append(opts.Buttons, gpio.Line{Pin: b.Pin, ActiveLow: b.ActiveLow})
	}
	return opts
}

func channelNames(cfg *config.Config) status.Names {
	var n status.Names
	for _, l := range cfg.Lights {
		n.Lights = append(n.Lights, l.Name)
	}
	for _, s := range cfg.Switches {
		n.Switches = append(n.Switches, s.Name)
	}
	for _, b := range cfg.Buttons {
		n.Buttons = append(n.Buttons, b.Name)
	}
	return n
}

// printState reads every button once and prints its level.
func printState(w io.Writer, cfg *config.Config, dryRun bool) error {
	if _, err := cfg.Installation(); err != nil {
		return err
	}
	board, err := openBoard(cfg, dryRun)
	if err != nil {
		return err
	}
	defer board.Close()

	for _, b := range cfg.Buttons {
		fmt.Fprintf(w, "%s (pin %d): %s\n", b.Name, b.Pin, pressedString(board.ReadDigital(b.Pin)))
	}
	return nil
}

func pressedString(on bool) string {
	if on {
		return "PRESSED"
	}
	return "RELEASED"
}

// resolveWSBroker converts the http.ws_broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" or
// empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" || ws == "" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil || u.Hostname() == "" {
		log.Warn().Str("broker", broker).Msg("ws_broker: cannot derive websocket url")
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}

// discardPublisher stands in when MQTT is disabled.
type discardPublisher struct{}

func (discardPublisher) Publish(mqtt.StateEvent) error        { return nil }
func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (discardPublisher) Close() error                         { return nil }
