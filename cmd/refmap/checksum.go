package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/goliatone/go-refmap/pkg/mapping"
)

type checksumCommand struct {
	baseCommand
	update bool
}

func (c *checksumCommand) Synopsis() string {
	return "Verify or refresh mapping file checksums"
}

func (c *checksumCommand) Help() string {
	return strings.TrimSpace(`
Usage: refmap checksum [options] <file>...

  Verifies the embedded sha1sum of each mapping file. With -update, the
  file is rewritten in place with a freshly computed digest instead.

Options:
  -update          Rewrite files with refreshed checksums.
  -config=<path>   Configuration file.
  -verbose         Log debug detail.
`)
}

func (c *checksumCommand) Run(args []string) int {
	flags := c.flagSet("checksum")
	flags.BoolVar(&c.update, "update", false, "rewrite checksums")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() == 0 {
		fmt.Println(c.Help())
		return 1
	}

	failed := false
	for _, path := range flags.Args() {
		if err := c.checksumOne(path); err != nil {
			color.Red("FAIL %s: %v", path, err)
			failed = true
			continue
		}
		color.Green("OK   %s", path)
	}
	if failed {
		return 1
	}
	return 0
}

func (c *checksumCommand) checksumOne(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !c.update {
		return mapping.VerifyTextChecksum(string(data), filepath.Base(path))
	}
	refreshed, err := mapping.RefreshChecksum(string(data))
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(refreshed), 0o644)
}
