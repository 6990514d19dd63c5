package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/yiblet/promptkeep/internal/cli"
)

func main() {
	var args cli.Args
	parser := arg.MustParse(&args)

	// With no subcommand, browse the default types.
	if parser.Subcommand() == nil {
		args.Browse = &cli.BrowseCmd{}
	}

	handler, err := cli.NewWithArgs(&args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The response, including any failure message, is already on stdout.
	err = handler.Execute(&args)
	if cerr := handler.Close(); cerr != nil && err == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cerr)
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}
