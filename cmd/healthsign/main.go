// Package main provides the healthsign developer CLI.
package main

import "github.com/fantasylifeleague/healthapi/internal/cli"

func main() {
	cli.Execute()
}
