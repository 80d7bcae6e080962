package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/goliatone/go-refmap/pkg/catalog"
)

type diffCommand struct {
	baseCommand
}

func (c *diffCommand) Synopsis() string {
	return "Show the differences between two mapping closures"
}

func (c *diffCommand) Help() string {
	return strings.TrimSpace(`
Usage: refmap diff [options] <old-mapping> <new-mapping>

  Loads both closures and prints every header and rule difference,
  recursing into nested files.

Options:
  -config=<path>   Configuration file.
  -verbose         Log debug detail.
`)
}

func (c *diffCommand) Run(args []string) int {
	flags := c.flagSet("diff")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() != 2 {
		fmt.Println(c.Help())
		return 1
	}

	_, cat, err := c.setup()
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	ctx := context.Background()
	from, err := cat.Load(ctx, flags.Arg(0))
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	to, err := cat.Load(ctx, flags.Arg(1))
	if err != nil {
		color.Red("%v", err)
		return 1
	}

	differences := catalog.Diff(from, to)
	for _, difference := range differences {
		switch difference.Kind {
		case catalog.DiffAdded:
			color.Green("%s", difference)
		case catalog.DiffDeleted:
			color.Red("%s", difference)
		default:
			fmt.Println(difference)
		}
	}
	if len(differences) == 0 {
		fmt.Println("no differences")
	}
	return 0
}
