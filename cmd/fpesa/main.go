// Command fpesa is the bridge's single binary, dispatching to one of four
// subcommands: restmapper (HTTP front-end), liveupdate (WebSocket fanout),
// messages_post (Post Worker) and messages_get (Get Worker).
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: fpesa <restmapper|liveupdate|messages_post|messages_get> [flags]")
		os.Exit(2)
	}

	subcommand := os.Args[1]
	args := os.Args[2:]

	var err error
	switch subcommand {
	case "restmapper":
		err = runRestmapper(args)
	case "liveupdate":
		err = runLiveupdate(args)
	case "messages_post":
		err = runMessagesPost(args)
	case "messages_get":
		err = runMessagesGet(args)
	default:
		fmt.Fprintf(os.Stderr, "fpesa: unknown subcommand %q\n", subcommand)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "fpesa %s: %s\n", subcommand, err)
		os.Exit(1)
	}
}
