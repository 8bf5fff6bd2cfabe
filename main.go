package main

import (
	"github.com/guettli/dechatter/cmd"
)

func main() {
	cmd.Execute()
}
