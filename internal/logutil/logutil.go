// Package logutil wires a prover or attestor process's structured
// logging up through genericconf.InitLog, the same slog-based
// terminal/JSON handler plus rotating file sink nitro's own daserver
// and node binaries use.
package logutil

import (
	flag "github.com/spf13/pflag"

	"github.com/scroll-tech/sgx-prover/cmd/genericconf"
)

// Config is the top-level logging knob set a prover/attestor config
// struct embeds under its own "log" key.
type Config struct {
	Type    string                        `koanf:"type"`
	Level   string                        `koanf:"level"`
	File    genericconf.FileLoggingConfig `koanf:"file"`
	Workdir string                        `koanf:"-"`
}

var DefaultConfig = Config{
	Type:  "plaintext",
	Level: "3",
	File:  genericconf.DefaultFileLoggingConfig,
}

func AddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".type", DefaultConfig.Type, "log format: plaintext or json")
	f.String(prefix+".level", DefaultConfig.Level, "log level; 1: ERROR, 2: WARN, 3: INFO, 4: DEBUG, 5: TRACE")
	genericconf.FileLoggingConfigAddOptions(prefix+".file", f)
}

// Init installs c as the process's default slog handler, resolving
// its file-logging path against workdir.
func (c *Config) Init(workdir string) error {
	pathResolver := genericconf.DefaultPathResolver(workdir)
	return genericconf.InitLog(c.Type, c.Level, &c.File, pathResolver)
}
