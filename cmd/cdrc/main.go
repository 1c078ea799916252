// Command cdrc compiles CDR model formulas into canonical model specs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/cdrc/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err == nil {
		return cli.ExitSuccess
	}
	// Commands report their own failures; flag and argument errors are
	// printed here.
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return cli.ExitCommandError
}
