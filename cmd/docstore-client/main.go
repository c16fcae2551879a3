// docstore-client is the document store's terminal client. Per spec.md §6
// it is invoked as "docstore-client <coord_ip> <coord_port> <username>" for
// an interactive line-oriented session, or with trailing positional words
// ("... <username> create a.txt") for SPEC_FULL.md's non-interactive
// scripting mode — both paths dispatch through the same
// internal/client/repl.REPL so they can never drift apart.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/opendocstore/docstore/internal/client/protocol"
	"github.com/opendocstore/docstore/internal/client/repl"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: docstore-client <coord_ip> <coord_port> <username> [command...]")
	}

	host := args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid coordinator port %q", args[1])
	}
	username := args[2]
	if username == "" {
		return fmt.Errorf("username must not be empty")
	}

	coordAddr := net.JoinHostPort(host, args[1])
	driver, err := protocol.Dial(coordAddr, username)
	if err != nil {
		return fmt.Errorf("connect to coordinator at %s: %w", coordAddr, err)
	}
	defer driver.Close()

	r := repl.New(driver, os.Stdin, os.Stdout)

	if len(args) > 3 {
		// Non-interactive scripting mode (SPEC_FULL.md Module Addition G):
		// everything after <username> is one command line.
		r.Dispatch(strings.Join(args[3:], " "))
		return nil
	}

	r.Run()
	return nil
}
