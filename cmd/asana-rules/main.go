package main

import "github.com/tkc/asana-rules/internal/cli"

func main() {
	cli.Execute()
}
