// lanspeed is a LAN speed tester. A server instance broadcasts its transfer
// ports over UDP on a well-known discovery port; client instances wait for an
// offer and then measure throughput by running concurrent TCP and UDP
// transfers of a configurable size against it.
package main

import (
	"os"

	"lanspeed/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
