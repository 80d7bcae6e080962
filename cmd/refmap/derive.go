package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"

	"github.com/goliatone/go-refmap/pkg/mapping"
)

type deriveCommand struct {
	baseCommand
	action    string
	reference string
	write     bool
}

func (c *deriveCommand) Synopsis() string {
	return "Derive the next version of a mapping"
}

func (c *deriveCommand) Help() string {
	return strings.TrimSpace(`
Usage: refmap derive [options] <mapping> [KEY=VALUE... | header.json]

  Derives a new version of <mapping> with refreshed provenance and
  checksum. For reference mappings, a reference file can be inserted
  under its match parameters or deleted from every rule. Without -action
  the command asks interactively.

Options:
  -action=<name>   One of version, insert, delete.
  -reference=<rf>  Reference basename for insert and delete.
  -write           Write the derived file into the working directory.
  -config=<path>   Configuration file.
  -verbose         Log debug detail.
`)
}

func (c *deriveCommand) Run(args []string) int {
	flags := c.flagSet("derive")
	flags.StringVar(&c.action, "action", "", "version, insert, or delete")
	flags.StringVar(&c.reference, "reference", "", "reference basename")
	flags.BoolVar(&c.write, "write", false, "write the derived file")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Println(c.Help())
		return 1
	}
	basename := flags.Arg(0)

	if err := c.prompt(); err != nil {
		color.Red("%v", err)
		return 1
	}

	_, cat, err := c.setup()
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	ctx := context.Background()

	var derived mapping.Mapping
	var text []byte
	switch c.action {
	case "version":
		derived, text, err = cat.Derive(ctx, basename)
	case "insert":
		var refHeader map[string]string
		refHeader, err = readHeader(flags.Args()[1:])
		if err == nil {
			derived, text, err = cat.InsertReference(ctx, basename, refHeader, c.reference)
		}
	case "delete":
		derived, text, err = cat.DeleteReference(ctx, basename, c.reference)
	default:
		err = fmt.Errorf("unknown action %q", c.action)
	}
	if err != nil {
		color.Red("%v", err)
		return 1
	}

	if c.write {
		if err := writeDerived(derived.Basename(), text); err != nil {
			color.Red("%v", err)
			return 1
		}
		color.Green("wrote %s", derived.Basename())
		return 0
	}
	fmt.Print(string(text))
	return 0
}

func writeDerived(basename string, text []byte) error {
	return os.WriteFile(basename, text, 0o644)
}

// prompt fills in the action and reference interactively when flags left
// them unset.
func (c *deriveCommand) prompt() error {
	if c.action == "" {
		question := &survey.Select{
			Message: "Derivation action:",
			Options: []string{"version", "insert", "delete"},
			Default: "version",
		}
		if err := survey.AskOne(question, &c.action); err != nil {
			return err
		}
	}
	if c.action != "version" && c.reference == "" {
		question := &survey.Input{Message: "Reference basename:"}
		if err := survey.AskOne(question, &c.reference, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	return nil
}
