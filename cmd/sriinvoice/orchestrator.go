package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	sri "github.com/repuestocontrol/sriinvoice"
)

// buildOrchestrator wires a FileStore-backed Orchestrator from
// environment configuration, the CLI's minimal standalone equivalent of
// what an embedding application assembles from its own repositories.
func buildOrchestrator(storeDir string) (*sri.Orchestrator, *sri.FileStore, sri.Config, error) {
	cfg, err := sri.LoadConfig(viper.New())
	if err != nil {
		return nil, nil, sri.Config{}, err
	}

	store, err := sri.NewFileStore(storeDir)
	if err != nil {
		return nil, nil, sri.Config{}, err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	sequencer := sri.NewSequenceAllocator(store)
	xsd := sri.NewXSDValidator("")
	if err := xsd.LoadSchemas(); err != nil {
		return nil, nil, sri.Config{}, err
	}
	client := sri.NewSRIClient(cfg.SOAP, log)

	var mailer sri.Dispatcher
	if cfg.SMTP.Username != "" {
		mailer = sri.NewMailer(cfg.SMTP)
	}

	orch := sri.NewOrchestrator(store, sequencer, xsd, client, mailer, log)
	return orch, store, cfg, nil
}
