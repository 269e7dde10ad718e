package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	sri "github.com/repuestocontrol/sriinvoice"
)

func processUsage() string {
	return `Usage: sriinvoice process -sale FILE -store DIR [-doctype 01]

Builds, validates, signs, and submits one comprobante for the sale
described in FILE (a JSON document with "header" and "lines" fields
matching sri.SaleHeader / sri.SaleLine).
`
}

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	salePath := fs.String("sale", "", "path to the sale JSON file")
	storeDir := fs.String("store", "./sriinvoice-data", "directory for document and sequence state")
	docType := fs.String("doctype", "01", "SRI doc type code")
	docID := fs.String("id", "", "document id (defaults to the sale's id)")
	fs.Usage = func() { fmt.Fprint(os.Stderr, processUsage()) }
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *salePath == "" {
		fs.Usage()
		return exitError
	}

	sale, err := loadSale(*salePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}

	orch, store, cfg, err := buildOrchestrator(*storeDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}

	id := *docID
	if id == "" {
		id = sale.Header().ID
	}
	doc := &sri.Document{
		ID:        id,
		DocType:   sri.DocType(*docType),
		Emitter:   cfg.Emitter,
		CreatedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := orch.Process(ctx, sale, doc); err != nil {
		fmt.Fprintln(os.Stderr, err)
		_ = store.Save(doc)
		return exitFailed
	}

	fmt.Printf("document %s authorized: %s (numeroAutorizacion=%s)\n", doc.ID, doc.ClaveAcceso, doc.NumeroAutorizacion)
	return exitOK
}
