package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"
)

func reprocessUsage() string {
	return `Usage: sriinvoice reprocess -sale FILE -store DIR -id ID

Re-enters the pipeline for a document previously FAILED or RETURNED,
resuming from its last successfully completed stage.
`
}

func runReprocess(args []string) int {
	fs := flag.NewFlagSet("reprocess", flag.ContinueOnError)
	salePath := fs.String("sale", "", "path to the sale JSON file")
	storeDir := fs.String("store", "./sriinvoice-data", "directory for document and sequence state")
	docID := fs.String("id", "", "document id to reprocess")
	fs.Usage = func() { fmt.Fprint(os.Stderr, reprocessUsage()) }
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *salePath == "" || *docID == "" {
		fs.Usage()
		return exitError
	}

	sale, err := loadSale(*salePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := orch.Reprocess(ctx, sale, doc); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailed
	}

	fmt.Printf("document %s now in state %s\n", doc.ID, doc.State)
	return exitOK
}
