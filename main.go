package main

import "github.com/navigator-hub/flow-runner/pkg/cli"

func main() {
	cli.Execute()
}
