package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"
)

func pollUsage() string {
	return `Usage: sriinvoice poll -store DIR -id ID

Queries SRI for the authorization status of a document stuck in the
RECEIVED state and updates it if SRI now reports AUTORIZADA.
`
}

func runPoll(args []string) int {
	fs := flag.NewFlagSet("poll", flag.ContinueOnError)
	storeDir := fs.String("store", "./sriinvoice-data", "directory for document and sequence state")
	docID := fs.String("id", "", "document id to poll")
	fs.Usage = func() { fmt.Fprint(os.Stderr, pollUsage()) }
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *docID == "" {
		fs.Usage()
		return exitError
	}

	orch, store, _, err := buildOrchestrator(*storeDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}

	doc, err := store.Load(*docID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := orch.PollStatus(ctx, doc); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailed
	}

	fmt.Printf("document %s is now in state %s\n", doc.ID, doc.State)
	return exitOK
}
