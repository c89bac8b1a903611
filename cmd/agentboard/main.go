// agentboard follows an agent/issue event stream and renders the board.
package main

import (
	"os"

	"github.com/agentboard/agentboard/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
