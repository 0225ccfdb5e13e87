// Package config layers a process's configuration the way nitro's own
// cmd/util/confighelpers does: pflag defaults, overlaid by an optional
// JSON config file, overlaid by CLI-supplied environment variables,
// overlaid by a literal --conf.string JSON blob, then unmarshalled
// into a koanf-tagged struct. confighelpers itself isn't part of this
// retrieval pack, so this reimplements its documented layering order
// directly against koanf rather than importing a package that isn't
// there.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/rawbytes"
	flag "github.com/spf13/pflag"

	"github.com/scroll-tech/sgx-prover/cmd/genericconf"
)

// BeginParse loads f's registered flags into a koanf instance, then
// layers a config file, an env-prefixed overlay, and a raw JSON string
// on top, in that order — each later source overriding the former.
// args are the raw CLI arguments (excluding argv[0]).
func BeginParse(f *flag.FlagSet, args []string) (*koanf.Koanf, error) {
	if err := f.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("error loading flags: %w", err)
	}

	var confConfig genericconf.ConfConfig
	if err := k.Unmarshal("conf", &confConfig); err != nil {
		return nil, fmt.Errorf("error reading conf config: %w", err)
	}

	for _, filename := range confConfig.File {
		if err := k.Load(file.Provider(filename), json.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", filename, err)
		}
	}

	if confConfig.EnvPrefix != "" {
		err := k.Load(env.Provider(confConfig.EnvPrefix, ".", func(s string) string {
			s = strings.TrimPrefix(s, confConfig.EnvPrefix)
			return strings.ReplaceAll(strings.ToLower(s), "_", ".")
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("error loading environment variables: %w", err)
		}
	}

	if confConfig.String != "" {
		if err := k.Load(rawbytes.Provider([]byte(confConfig.String)), json.Parser()); err != nil {
			return nil, fmt.Errorf("error loading --conf.string: %w", err)
		}
	}

	// Reload flags on top so an explicit CLI flag always wins over
	// anything a file or env var supplied.
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("error re-loading flags: %w", err)
	}

	return k, nil
}

// EndParse unmarshals k into out, whose fields must carry koanf tags.
func EndParse(k *koanf.Koanf, out interface{}) error {
	return k.Unmarshal("", out)
}

// LoadFile overlays a single JSON config file on top of k, for the
// "-c <path>" shorthand flag every binary registers alongside the
// fuller --conf.file/--conf.string/--conf.env-prefix set.
func LoadFile(k *koanf.Koanf, path string) error {
	return k.Load(file.Provider(path), json.Parser())
}

// Defaults seeds k with a struct's zero-value defaults before flags
// are applied, for callers that want koanf-driven defaulting instead
// of duplicating every default in the flag registration call.
func Defaults(k *koanf.Koanf, defaults map[string]interface{}) error {
	return k.Load(confmap.Provider(defaults, "."), nil)
}

// DumpConfig prints out the fully-resolved configuration as JSON,
// overlaying replacements (dot-path -> value) first so secrets like
// private keys never reach stdout.
func DumpConfig(k *koanf.Koanf, replacements map[string]interface{}) error {
	if len(replacements) > 0 {
		if err := k.Load(confmap.Provider(replacements, "."), nil); err != nil {
			return fmt.Errorf("error applying dump redactions: %w", err)
		}
	}
	out, err := k.Marshal(json.Parser())
	if err != nil {
		return fmt.Errorf("unable to marshal config: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// PrintErrorAndExit reports a config parsing error alongside a sample
// usage string, then exits non-zero, mirroring confighelpers' own
// fatal-config-error convention.
func PrintErrorAndExit(err error, usage func(progname string)) {
	fmt.Println(err.Error())
	usage(os.Args[0])
	os.Exit(1)
}
