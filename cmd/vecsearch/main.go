// Package main is the vecsearch CLI entry point.
package main

import "github.com/hyperjump/vecsearch/internal/cli"

var version = "dev"

func main() {
	cli.Execute(version)
}
