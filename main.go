// Package main is the entry point for the sigscan CLI.
package main

import "sigscan.dev/pkg/sigscan/cmd"

func main() {
	cmd.Execute()
}
