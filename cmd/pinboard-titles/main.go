package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	os.Exit(run(os.Args, os.Stderr))
}

// run executes the CLI and returns the process exit status: 0 when the run
// completed, 1 when it could not start or aborted.
func run(args []string, stderr io.Writer) int {
	app := newCLIApp(stderr)
	if err := app.Run(args); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
