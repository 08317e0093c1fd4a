// The main package for the botwatch executable.
package main

import (
	"github.com/llmlogs/botwatch/cmd"
)

func main() {
	cmd.Execute()
}
