// Command refmap inspects, certifies, and derives calibration mapping
// files out of a local store.
package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"
)

const version = "0.3.0"

func main() {
	app := cli.NewCLI("refmap", version)
	app.Args = os.Args[1:]
	app.Commands = map[string]cli.CommandFactory{
		"list": func() (cli.Command, error) {
			return &listCommand{}, nil
		},
		"bestrefs": func() (cli.Command, error) {
			return &bestrefsCommand{}, nil
		},
		"certify": func() (cli.Command, error) {
			return &certifyCommand{}, nil
		},
		"diff": func() (cli.Command, error) {
			return &diffCommand{}, nil
		},
		"checksum": func() (cli.Command, error) {
			return &checksumCommand{}, nil
		},
		"derive": func() (cli.Command, error) {
			return &deriveCommand{}, nil
		},
	}

	status, err := app.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(status)
}
