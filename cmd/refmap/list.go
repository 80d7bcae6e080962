package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/goliatone/go-refmap/pkg/config"
	"github.com/goliatone/go-refmap/pkg/mapping"
)

func referenceNameMap(m mapping.Mapping) map[string][]string {
	switch concrete := m.(type) {
	case *mapping.PipelineContext:
		return concrete.ReferenceNameMap()
	case *mapping.InstrumentContext:
		return concrete.ReferenceNameMap()
	}
	return map[string][]string{m.Basename(): m.ReferenceNames()}
}

type listCommand struct {
	baseCommand
	references bool
	store      string
}

func (c *listCommand) Synopsis() string {
	return "List the files in a mapping closure"
}

func (c *listCommand) Help() string {
	return strings.TrimSpace(`
Usage: refmap list [options] <mapping>
       refmap list -store=<glob>

  Loads the closure rooted at <mapping> and lists every nested mapping,
  optionally with the reference files each selection resolves to. With
  -store, lists matching files straight out of the local store instead.

Options:
  -config=<path>   Configuration file.
  -references      Also list selected reference files per selection.
  -store=<glob>    List store files matching the glob, e.g. '*.pmap'.
  -verbose         Log debug detail.
`)
}

func (c *listCommand) Run(args []string) int {
	flags := c.flagSet("list")
	flags.BoolVar(&c.references, "references", false, "list reference files")
	flags.StringVar(&c.store, "store", "", "list store files matching a glob")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if c.store == "" && flags.NArg() != 1 {
		fmt.Println(c.Help())
		return 1
	}

	cfg, cat, err := c.setup()
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	if c.store != "" {
		return c.listStore(cfg)
	}
	loaded, err := cat.Load(context.Background(), flags.Arg(0))
	if err != nil {
		color.Red("%v", err)
		return 1
	}

	for _, name := range loaded.MappingNames() {
		fmt.Println(name)
	}
	if !c.references {
		return 0
	}
	nameMap := referenceNameMap(loaded)
	keys := make([]string, 0, len(nameMap))
	for key := range nameMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		color.Cyan("%s:", key)
		for _, refname := range nameMap[key] {
			fmt.Printf("  %s\n", refname)
		}
	}
	return 0
}

func (c *listCommand) listStore(cfg config.Config) int {
	mappings, err := cfg.ListMappings(c.store)
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	references, err := cfg.ListReferences(c.store)
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	for _, name := range mappings {
		fmt.Println(name)
	}
	for _, name := range references {
		fmt.Println(name)
	}
	return 0
}
