package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/duoplan/duoplan/internal/cli"
)

func main() {
	// Optional .env for local setups; absence is fine.
	_ = godotenv.Load()

	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
