package main

import (
	"encoding/json"
	"fmt"
	"os"

	sri "github.com/repuestocontrol/sriinvoice"
)

// fileSale is a JSON-loadable SaleView, the CLI's stand-in for the
// embedding application's own sale record. An application wiring this
// pipeline directly implements sri.SaleView against its own models
// instead.
type fileSale struct {
	H sri.SaleHeader  `json:"header"`
	L []sri.SaleLine `json:"lines"`
}

func (f *fileSale) Header() sri.SaleHeader { return f.H }
func (f *fileSale) Lines() []sri.SaleLine  { return f.L }

func loadSale(path string) (*fileSale, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sale file: %w", err)
	}
	var s fileSale
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parsing sale file: %w", err)
	}
	return &s, nil
}
