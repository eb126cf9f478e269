package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/kardianos/osext"
	"github.com/rs/zerolog/log"

	"github.com/adebree/doduino/internal/config"
)

const serviceFile = `[Unit]
Description=DoDuino lighting controller
After=network-online.target
Wants=network-online.target

[Service]
ExecStart={{.BinPath}} run -c {{.ConfigFile}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

var serviceTmpl = template.Must(template.New("service").Parse(serviceFile))

// install copies the running binary under prefix, writes a systemd unit
// for it and the default config. An existing config is kept unless reset.
func install(prefix, configFile string, reset bool) error {
	if prefix == "" {
		prefix = "/"
	}
	if configFile == "" {
		configFile = defaultConfigPath
	}

	self, err := osext.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	binPath := "/usr/bin/doduino"
	if err := copyFile(self, filepath.Join(prefix, binPath), 0o755); err != nil {
		return err
	}

	unitPath := filepath.Join(prefix, "usr/lib/systemd/system/doduino.service")
	if err := writeFile(unitPath, 0o644, func(w io.Writer) error {
		return serviceTmpl.Execute(w, struct{ BinPath, ConfigFile string }{binPath, configFile})
	}); err != nil {
		return err
	}

	confPath := filepath.Join(prefix, configFile)
	if _, err := os.Stat(confPath); err == nil && !reset {
		log.Info().Str("path", confPath).Msg("keeping existing config")
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", confPath, err)
	}
	if err := writeFile(confPath, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, config.DefaultYAML)
		return err
	}); err != nil {
		return err
	}
	log.Info().Str("path", confPath).Msg("wrote default config")
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	return writeFile(dst, mode, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

func writeFile(path string, mode os.FileMode, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
