package main

import "github.com/seanblong/contextselect/internal/cli"

func main() {
	cli.Execute()
}
