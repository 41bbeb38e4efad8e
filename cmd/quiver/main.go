package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/quiver-labs/quiver-cli/internal/adapters/driving/cli"
)

// version is overridable at build time with -ldflags.
var version = "0.1.0"

func main() {
	// Optional .env in the working directory; environment wins over
	// the config file either way.
	_ = godotenv.Load()

	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
