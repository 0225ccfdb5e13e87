// Package metrics starts go-ethereum's process metrics collector and
// its /debug/metrics HTTP endpoint, the same pair cmd/util.util.go's
// StartMetricsAndPProf wires for nitro's own binaries.
package metrics

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/exp"
	flag "github.com/spf13/pflag"
)

// ServerConfig is the metrics HTTP listener nitro's own
// cmd/conf.MetricsServerConfig describes.
type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	Port           int           `koanf:"port"`
	UpdateInterval time.Duration `koanf:"update-interval"`
}

var DefaultServerConfig = ServerConfig{
	Addr:           "127.0.0.1",
	Port:           6070,
	UpdateInterval: 3 * time.Second,
}

func AddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".addr", DefaultServerConfig.Addr, "metrics server address")
	f.Int(prefix+".port", DefaultServerConfig.Port, "metrics server port")
	f.Duration(prefix+".update-interval", DefaultServerConfig.UpdateInterval, "interval for collecting process metrics")
}

// Config gates whether metrics are exposed at all.
type Config struct {
	Enable bool         `koanf:"enable"`
	Server ServerConfig `koanf:"server"`
}

var DefaultConfig = Config{Enable: false, Server: DefaultServerConfig}

func ConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.Bool(prefix+".enable", DefaultConfig.Enable, "enable metrics collection")
	AddOptions(prefix+".server", f)
}

// Start turns on go-ethereum's process metrics collector and serves
// them over HTTP, matching StartMetricsAndPProf's guard that metrics
// must be toggled through the top-level go-ethereum switch and not
// just this process's own config struct.
func Start(c Config) error {
	if !c.Enable {
		return nil
	}
	if !metrics.Enabled {
		return fmt.Errorf("metrics must be enabled via command line by adding --metrics, config file has no effect")
	}
	go metrics.CollectProcessMetrics(c.Server.UpdateInterval)
	exp.Setup(fmt.Sprintf("%s:%d", c.Server.Addr, c.Server.Port))
	return nil
}
