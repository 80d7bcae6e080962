package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	refmap "github.com/goliatone/go-refmap"
	"github.com/goliatone/go-refmap/pkg/catalog"
	"github.com/goliatone/go-refmap/pkg/config"
)

// baseCommand carries the flags and wiring every subcommand shares.
type baseCommand struct {
	configPath string
	verbose    bool
	log        hclog.Logger
}

func (b *baseCommand) flagSet(name string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.StringVar(&b.configPath, "config", defaultConfigPath(), "configuration file")
	flags.BoolVar(&b.verbose, "verbose", false, "log debug detail")
	return flags
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.refmap/config.yaml"
	}
	return "refmap.yaml"
}

// setup loads configuration and wires a catalog over the store.
func (b *baseCommand) setup() (config.Config, *catalog.Catalog, error) {
	level := hclog.Warn
	if b.verbose {
		level = hclog.Debug
	}
	b.log = hclog.New(&hclog.LoggerOptions{Name: "refmap", Level: level})

	cfg, err := config.Load(b.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	cat, err := refmap.NewCatalog(cfg, catalog.WithLogger(b.log))
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, cat, nil
}

// readHeader loads a dataset header given either a JSON file path or
// inline KEY=VALUE arguments.
func readHeader(args []string) (map[string]string, error) {
	header := map[string]string{}
	for _, arg := range args {
		if strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			header[strings.ToUpper(parts[0])] = parts[1]
			continue
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("read header file %q: %w", arg, err)
		}
		var fromFile map[string]string
		if err := json.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("parse header file %q: %w", arg, err)
		}
		for key, value := range fromFile {
			header[strings.ToUpper(key)] = value
		}
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("no dataset parameters given, pass KEY=VALUE pairs or a JSON header file")
	}
	return header, nil
}
