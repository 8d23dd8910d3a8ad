package main

import "github.com/devicelab-dev/terrain/pkg/cli"

func main() {
	cli.Execute()
}
