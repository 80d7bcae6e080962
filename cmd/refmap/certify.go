package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/goliatone/go-refmap/pkg/certify"
	"github.com/goliatone/go-refmap/pkg/mapping"
	"github.com/goliatone/go-refmap/pkg/tpn"
)

type certifyCommand struct {
	baseCommand
	templatePath string
}

func (c *certifyCommand) Synopsis() string {
	return "Check mappings and reference headers against a template"
}

func (c *certifyCommand) Help() string {
	return strings.TrimSpace(`
Usage: refmap certify -tpn=<template> [options] <file>...

  Certifies each file against a validation template. Mapping files have
  their rule keys checked against the template's closed enumerations;
  JSON header files are checked field by field.

Options:
  -tpn=<path>      Validation template file. Required.
  -config=<path>   Configuration file.
  -verbose         Log debug detail.
`)
}

func (c *certifyCommand) Run(args []string) int {
	flags := c.flagSet("certify")
	flags.StringVar(&c.templatePath, "tpn", "", "validation template")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if c.templatePath == "" || flags.NArg() == 0 {
		fmt.Println(c.Help())
		return 1
	}

	_, cat, err := c.setup()
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	text, err := os.ReadFile(c.templatePath)
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	template, err := tpn.Parse(filepath.Base(c.templatePath), string(text))
	if err != nil {
		color.Red("%v", err)
		return 1
	}

	certifier := certify.NewCertifier(certify.WithLogger(c.log))
	failed := false
	for _, name := range flags.Args() {
		if err := c.certifyOne(cat, certifier, template, name); err != nil {
			color.Red("FAIL %s\n%v", name, err)
			failed = true
			continue
		}
		color.Green("OK   %s", name)
	}
	if failed {
		return 1
	}
	return 0
}

func (c *certifyCommand) certifyOne(cat catalogLoader, certifier *certify.Certifier, template tpn.Template, name string) error {
	if _, err := mapping.KindForName(name); err == nil {
		loaded, err := cat.Load(context.Background(), filepath.Base(name))
		if err != nil {
			return err
		}
		rmap, ok := loaded.(*mapping.ReferenceMapping)
		if !ok {
			return fmt.Errorf("%q is a %s mapping, only reference mappings certify against a template", name, loaded.Kind())
		}
		return certifier.CertifyMapping(rmap, template)
	}
	header, err := readHeader([]string{name})
	if err != nil {
		return err
	}
	return certifier.CertifyHeader(template, header)
}

// catalogLoader is the slice of the catalog this command needs; it keeps
// certifyOne testable with fixture loaders.
type catalogLoader interface {
	Load(ctx context.Context, basename string) (mapping.Mapping, error)
}
