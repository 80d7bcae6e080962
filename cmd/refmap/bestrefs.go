package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
)

type bestrefsCommand struct {
	baseCommand
	contextName string
}

func (c *bestrefsCommand) Synopsis() string {
	return "Compute best references for a dataset header"
}

func (c *bestrefsCommand) Help() string {
	return strings.TrimSpace(`
Usage: refmap bestrefs -context=<pmap> [options] KEY=VALUE... | header.json

  Computes the reference file per reference type for one dataset, given
  its parameters inline or as a JSON header file.

Options:
  -context=<pmap>  Pipeline context to select under. Required.
  -config=<path>   Configuration file.
  -verbose         Log debug detail.
`)
}

func (c *bestrefsCommand) Run(args []string) int {
	flags := c.flagSet("bestrefs")
	flags.StringVar(&c.contextName, "context", "", "pipeline context")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if c.contextName == "" || flags.NArg() == 0 {
		fmt.Println(c.Help())
		return 1
	}

	header, err := readHeader(flags.Args())
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	_, cat, err := c.setup()
	if err != nil {
		color.Red("%v", err)
		return 1
	}

	refs, err := cat.BestRefs(context.Background(), c.contextName, header)
	filekinds := make([]string, 0, len(refs))
	for filekind := range refs {
		filekinds = append(filekinds, filekind)
	}
	sort.Strings(filekinds)
	for _, filekind := range filekinds {
		fmt.Printf("%-12s %s\n", filekind, refs[filekind])
	}
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	return 0
}
