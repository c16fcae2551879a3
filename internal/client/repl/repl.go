// Package repl implements the client's command dispatch: a line-oriented
// TTY loop (one command per line) and a non-interactive single-command
// mode, both driven through the exact same dispatch function so the two
// surfaces can never drift apart. Grounded on the teacher's cmd/dfsctl
// cobra commands, each of which is a thin wrapper calling into
// pkg/apiclient — here a thin line-parser wrapping
// internal/client/protocol.Driver.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opendocstore/docstore/internal/bytesize"
	"github.com/opendocstore/docstore/internal/client/output"
	"github.com/opendocstore/docstore/internal/client/protocol"
)

const helpText = `Commands:
  CREATE <file>
  DELETE <file>
  READ <file>
  WRITE <file> <1-based sentence>
  STREAM <file> [--paced]
  UNDO <file>
  INFO <file>
  VIEW [-a] [-l]
  LIST
  ADDACCESS -R|-W <file> <user>
  REMACCESS <file> <user>
  EXEC <file>
  HELP
  EXIT / QUIT`

// REPL owns the driver and the two I/O streams the interactive loop reads
// from and writes to.
type REPL struct {
	driver *protocol.Driver
	in     *bufio.Scanner
	out    io.Writer
}

// New builds a REPL over an already-dialed driver.
func New(driver *protocol.Driver, in io.Reader, out io.Writer) *REPL {
	return &REPL{driver: driver, in: bufio.NewScanner(in), out: out}
}

// Run reads one command per line until EOF, QUIT, or EXIT.
func (r *REPL) Run() {
	fmt.Fprintln(r.out, "Connected. Type HELP for a list of commands.")
	for {
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			return
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if r.Dispatch(line) {
			return
		}
	}
}

// Dispatch runs a single command line against the driver, printing its
// result to out. Returns true if the session should end (EXIT/QUIT).
func (r *REPL) Dispatch(line string) (exit bool) {
	verb, rest := splitVerb(line)
	switch strings.ToUpper(verb) {
	case "HELP":
		fmt.Fprintln(r.out, helpText)
	case "EXIT", "QUIT":
		return true
	case "CREATE":
		r.simple(r.driver.Create, rest)
	case "DELETE":
		r.simple(r.driver.Delete, rest)
	case "UNDO":
		r.simple(r.driver.Undo, rest)
	case "EXEC":
		r.simple(r.driver.Exec, rest)
	case "INFO":
		r.info(rest)
	case "VIEW":
		r.view(rest)
	case "LIST":
		r.list()
	case "READ":
		r.read(rest)
	case "STREAM":
		r.stream(rest)
	case "WRITE":
		r.write(rest)
	case "ADDACCESS":
		r.addAccess(rest)
	case "REMACCESS":
		r.remAccess(rest)
	default:
		fmt.Fprintf(r.out, "Error: unknown command %q\n", verb)
	}
	return false
}

func splitVerb(line string) (verb, rest string) {
	verb, rest, _ = strings.Cut(line, " ")
	return verb, strings.TrimSpace(rest)
}

func (r *REPL) simple(fn func(string) (string, error), filename string) {
	if filename == "" {
		fmt.Fprintln(r.out, "Error: expected a filename")
		return
	}
	data, err := fn(filename)
	r.printResult(data, err)
}

func (r *REPL) printResult(data string, err error) {
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	if data != "" {
		fmt.Fprintln(r.out, data)
	} else {
		fmt.Fprintln(r.out, "OK")
	}
}

func (r *REPL) info(filename string) {
	data, err := r.driver.Info(filename)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	output.PrintMetaFile(r.out, data)
}

func (r *REPL) view(flags string) {
	data, err := r.driver.View(flags)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	if containsFlag(strings.Fields(flags), "-l") {
		data = humanizeSizeColumn(data)
	}
	output.PrintRows(r.out, []string{"Filename", "Owner", "Size"}, data)
}

func containsFlag(fields []string, flag string) bool {
	for _, f := range fields {
		if f == flag {
			return true
		}
	}
	return false
}

// humanizeSizeColumn rewrites VIEW's third (byte-count) column into a
// human-readable size for "-l" long-listing output.
func humanizeSizeColumn(data string) string {
	lines := strings.Split(strings.TrimRight(data, "\n"), "\n")
	for i, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			continue
		}
		n, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			continue
		}
		fields[2] = bytesize.ByteSize(n).String()
		lines[i] = strings.Join(fields, "\t")
	}
	return strings.Join(lines, "\n") + "\n"
}

func (r *REPL) list() {
	data, err := r.driver.List()
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	output.PrintRows(r.out, []string{"Username", "Status", "Last IP"}, data)
}

func (r *REPL) read(filename string) {
	data, err := r.driver.Read(filename)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, data)
}

func (r *REPL) stream(rest string) {
	filename, paced := strings.CutSuffix(rest, " --paced")
	filename = strings.TrimSpace(filename)
	if filename == "" {
		fmt.Fprintln(r.out, "Error: expected a filename")
		return
	}
	err := r.driver.Stream(filename, paced, func(chunk string) error {
		if paced {
			fmt.Fprint(r.out, chunk+" ")
		} else {
			fmt.Fprint(r.out, chunk)
		}
		return nil
	})
	fmt.Fprintln(r.out)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
	}
}

// write implements the WRITE sub-loop: after the initial lock-acquire
// succeeds, every following line is a "<1-based word> <new_word>" frame
// until ETIRW commits.
func (r *REPL) write(rest string) {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		fmt.Fprintln(r.out, "Error: expected \"WRITE <file> <sentence>\"")
		return
	}
	filename := fields[0]
	sentence1, err := strconv.Atoi(fields[1])
	if err != nil || sentence1 < 1 {
		fmt.Fprintln(r.out, "Error: sentence index must be a positive integer")
		return
	}

	sess, msg, err := r.driver.BeginWrite(filename, sentence1-1)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, msg)

	for {
		fmt.Fprint(r.out, "write> ")
		if !r.in.Scan() {
			sess.Abandon()
			return
		}
		line := strings.TrimSpace(r.in.Text())
		if strings.EqualFold(line, "ETIRW") {
			data, err := sess.Commit()
			r.printResult(data, err)
			return
		}

		word1, newWord, ok := strings.Cut(line, " ")
		idx, convErr := strconv.Atoi(word1)
		if !ok || convErr != nil || idx < 1 {
			fmt.Fprintln(r.out, "Error: expected \"<1-based word index> <new word>\" or ETIRW")
			continue
		}
		data, err := sess.ReplaceWord(idx-1, newWord)
		r.printResult(data, err)
	}
}

func (r *REPL) addAccess(rest string) {
	fields := strings.Fields(rest)
	if len(fields) != 3 {
		fmt.Fprintln(r.out, "Error: expected \"ADDACCESS -R|-W <file> <user>\"")
		return
	}
	data, err := r.driver.AddAccess(fields[0], fields[1], fields[2])
	r.printResult(data, err)
}

func (r *REPL) remAccess(rest string) {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		fmt.Fprintln(r.out, "Error: expected \"REMACCESS <file> <user>\"")
		return
	}
	data, err := r.driver.RemAccess(fields[0], fields[1])
	r.printResult(data, err)
}
