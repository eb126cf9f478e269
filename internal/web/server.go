// Package web provides the HTTP status page and command API of the doduino
// daemon.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/adebree/doduino/internal/command"
	"github.com/adebree/doduino/internal/status"
)

// Server serves the status page and the command API over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   command.Commander
}

// New creates a Server that reads state from tracker and submits requests
// to commands.
func New(addr string, tracker *status.Tracker, commands command.Commander) *Server {
	s := &Server{tracker: tracker, commands: commands}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /index.json", s.handleJSON)
	mux.HandleFunc("GET /getLightChannels", s.handleLightChannels)
	mux.HandleFunc("GET /getSwitchChannels", s.handleSwitchChannels)
	mux.HandleFunc("GET /setLightChannel/{ch}/{value}", s.handleSetLight)
	mux.HandleFunc("GET /setLightChannel/{ch}/{value}/{speed}", s.handleSetLight)
	mux.HandleFunc("GET /setLightIdle/{ch}", s.handleSetLightIdle)
	mux.HandleFunc("GET /setSwitchChannel/{ch}/{state}", s.handleSetSwitch)
	mux.HandleFunc("GET /setSwitchChannel/{ch}/{state}/{start_delay}/{duration}", s.handleSetSwitch)
	mux.HandleFunc("GET /crossdomain.xml", s.handleCrossDomain)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the request router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.Error().Err(err).Msg("render status page")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleLightChannels(w http.ResponseWriter, r *http.Request) {
	writeXML(w, lightChannels(s.tracker.Snapshot()))
}

func (s *Server) handleSwitchChannels(w http.ResponseWriter, r *http.Request) {
	writeXML(w, switchChannels(s.tracker.Snapshot()))
}

func (s *Server) handleCrossDomain(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprintln(w, crossDomainPolicy)
}

func (s *Server) handleSetLight(w http.ResponseWriter, r *http.Request) {
	args, ok := pathInts(w, r, "ch", "value")
	if !ok {
		return
	}
	// An omitted speed factor is sent as 0.
	speed := 0
	if r.PathValue("speed") != "" {
		v, ok := pathInts(w, r, "speed")
		if !ok {
			return
		}
		speed = v[0]
	}
	s.reply(w, r, s.commands.SetLight(args[0], args[1], speed))
}

func (s *Server) handleSetLightIdle(w http.ResponseWriter, r *http.Request) {
	args, ok := pathInts(w, r, "ch")
	if !ok {
		return
	}
	s.reply(w, r, s.commands.SetLightIdle(args[0]))
}

func (s *Server) handleSetSwitch(w http.ResponseWriter, r *http.Request) {
	args, ok := pathInts(w, r, "ch", "state")
	if !ok {
		return
	}
	startDelay, duration := 0, 0
	if r.PathValue("start_delay") != "" {
		d, ok := pathInts(w, r, "start_delay", "duration")
		if !ok {
			return
		}
		startDelay, duration = d[0], d[1]
	}
	s.reply(w, r, s.commands.SetSwitch(args[0], args[1], startDelay, duration))
}

// reply reports the outcome of a command. Out-of-range requests are
// dropped but still answered with 200, which is what existing clients
// expect.
func (s *Server) reply(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	switch {
	case err == nil:
		fmt.Fprintln(w, "OK")
	case errors.Is(err, command.ErrOutOfRange):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("request ignored")
		fmt.Fprintln(w, "IGNORED")
	case errors.Is(err, command.ErrBusy):
		log.Warn().Str("path", r.URL.Path).Msg("command queue full")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("command failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// pathInts parses the named path values as integers, answering 400 on the
// first that is not one.
func pathInts(w http.ResponseWriter, r *http.Request, names ...string) ([]int, bool) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := strconv.Atoi(r.PathValue(name))
		if err != nil {
			http.Error(w, fmt.Sprintf("%s: not an integer", name), http.StatusBadRequest)
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
