// ABOUTME: Entry point for the runmix CLI
// ABOUTME: Dispatches generate/info subcommands and prints JSON output

// Package main is the runmix CLI entry point: "generate" builds and
// publishes one run playlist, "info" reports catalog statistics. Both
// dispatch off os.Args[1] and print a single JSON object on stdout.
package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()

		return 2
	}

	switch args[0] {
	case "generate":
		return runGenerate(args[1:])
	case "info":
		return runInfo(args[1:])
	case "-h", "--help", "help":
		printUsage()

		return 0
	default:
		fmt.Fprintf(os.Stderr, "runmix: unknown command %q\n\n", args[0])
		printUsage()

		return 2
	}
}

func printUsage() {
	fmt.Println("Usage: runmix <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  generate   build and publish a run playlist")
	fmt.Println("  info       report catalog statistics")
}

func writeJSON(code int, pretty bool, v any) int {
	if err := encodeJSON(os.Stdout, pretty, v); err != nil {
		fmt.Fprintf(os.Stderr, "runmix: failed to encode output: %v\n", err)

		return 1
	}

	return code
}

func writeError(pretty bool, err error) int {
	return writeJSON(1, pretty, errorOutput{Error: err.Error()})
}

type errorOutput struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
