// Command sriinvoice operates the SRI electronic invoicing pipeline from
// the shell: processing a sale into a comprobante, reprocessing one that
// failed or was returned, polling SRI for an outstanding authorization,
// and resetting an emitter's sequence counter.
package main

import (
	"fmt"
	"os"
)

const (
	exitOK    = 0
	exitFailed = 1
	exitError = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		usage()
		return exitError
	}

	switch os.Args[1] {
	case "process":
		return runProcess(os.Args[2:])
	case "reprocess":
		return runReprocess(os.Args[2:])
	case "poll":
		return runPoll(os.Args[2:])
	case "reset-sequence":
		return runResetSequence(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "sriinvoice: unknown command %q\n\n", os.Args[1])
		usage()
		return exitError
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `sriinvoice is a tool for operating the SRI electronic invoicing pipeline.

Usage:

	sriinvoice <command> [arguments]

The commands are:

	process         build, validate, sign, and submit one comprobante
	reprocess       re-run a document stuck in FAILED or RETURNED
	poll            query SRI for an outstanding authorization
	reset-sequence  reset an emitter's secuencial counter to a given value

Use "sriinvoice <command> -h" for details about a command's flags.
`)
}
