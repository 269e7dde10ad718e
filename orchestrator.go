package sri

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DocumentStore is the persistence boundary the orchestrator writes
// through after every stage, so a crash between stages resumes cleanly
// from the last persisted state. Grounded on the state-persist-after-
// each-stage pattern in procesamiento_sri.py and in the pack's
// dian_orchestrator.go (its repository.InvoiceRepository dependency).
type DocumentStore interface {
	Save(doc *Document) error
}

// SRIGateway is the reception/authorization boundary Process talks to.
// *SRIClient satisfies it; tests substitute a fake to exercise the
// pipeline's state transitions without a network SRI endpoint.
type SRIGateway interface {
	EnviarComprobante(ctx context.Context, xmlContent []byte) (RecepcionResult, error)
	PollAuthorization(ctx context.Context, claveAcceso string, interval time.Duration) (AutorizacionResult, error)
	AutorizacionComprobante(ctx context.Context, claveAcceso string) (AutorizacionResult, error)
}

// Dispatcher is the notification boundary Process talks to after
// authorization. *Mailer satisfies it.
type Dispatcher interface {
	Send(doc *Document, header SaleHeader) error
}

// Orchestrator drives the six-step pipeline, persisting state after
// every stage. RIDE rendering and email dispatch (steps 5 and 6) are
// optional and non-fatal: their failures are recorded as messages but
// never fail the pipeline, matching procesamiento_sri.py's non-fatal
// handling of steps [5/6] and [6/6].
type Orchestrator struct {
	store      DocumentStore
	sequencer  *SequenceAllocator
	xsd        *XSDValidator
	certLoader func(EmitterConfig) (*Certificate, error)
	client     SRIGateway
	mailer     Dispatcher
	log        zerolog.Logger

	pollInterval time.Duration
	pollCeiling  time.Duration
}

func NewOrchestrator(store DocumentStore, sequencer *SequenceAllocator, xsd *XSDValidator, client SRIGateway, mailer Dispatcher, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		sequencer: sequencer,
		xsd:       xsd,
		client:    client,
		mailer:    mailer,
		log:       log,
		certLoader: func(e EmitterConfig) (*Certificate, error) {
			return LoadCertificate(e.CertificatePath, e.CertificatePassword)
		},
		pollInterval: 3 * time.Second,
		pollCeiling:  60 * time.Second,
	}
}

// ProcessAsync runs Process in its own goroutine, the way
// dian_orchestrator.go's ProcessAsync fires the pipeline off the request
// path. Callers that need the result synchronously should call Process
// directly instead.
func (o *Orchestrator) ProcessAsync(sale SaleView, doc *Document) {
	go func() {
		if err := o.Process(context.Background(), sale, doc); err != nil {
			o.log.Error().Err(err).Str("document", doc.String()).Msg("processing failed")
		}
	}()
}

// Process runs the full six-step pipeline for doc, persisting state
// after every stage. It is idempotent and resumable: a Document already
// past a given stage is not reprocessed through it, matching §4.7's
// "safe to call again" invariant and procesamiento_sri.py's
// procesar_factura.
func (o *Orchestrator) Process(ctx context.Context, sale SaleView, doc *Document) error {
	if doc.State.Terminal() {
		return nil
	}

	markFailed := func(kind Kind, text string, cause error) error {
		doc.State = StateFailed
		doc.AddMessage(SevError, string(kind), text, nil)
		o.persist(doc)
		return newError(kind, false, cause, "%s", text)
	}

	// [1/6] allocate sequence + build XML
	if doc.State < StateXMLBuilt {
		if doc.Secuencial == 0 {
			n, err := o.sequencer.Next(doc.Emitter.RUC, doc.Emitter.Establecimiento, doc.Emitter.PuntoEmision, doc.DocType)
			if err != nil {
				return markFailed(KindSequenceExhausted, "allocating secuencial", err)
			}
			doc.Secuencial = n
			doc.NumeroComprobante = FormatNumeroComprobante(doc.Emitter.Establecimiento, doc.Emitter.PuntoEmision, n)
			key, err := GenerateAccessKey(AccessKeyInput{
				FechaEmision:    sale.Header().FechaEmision,
				DocType:         doc.DocType,
				RUC:             doc.Emitter.RUC,
				Ambiente:        doc.Emitter.Ambiente,
				Establecimiento: doc.Emitter.Establecimiento,
				PuntoEmision:    doc.Emitter.PuntoEmision,
				Secuencial:      n,
				TipoEmision:     doc.Emitter.TipoEmision,
			})
			if err != nil {
				return markFailed(KindInvalidSequential, "generating access key", err)
			}
			doc.ClaveAcceso = key
		}
		if err := BuildXML(doc, sale); err != nil {
			return markFailed(KindXMLBuild, "building xml", err)
		}
		o.persist(doc)
		o.log.Info().Str("clave", doc.ClaveAcceso).Msg("step 1/6: xml built")
	}

	// [2/6] validate XSD (environment-sensitive: production is strict)
	if doc.State < StateValidated {
		if err := o.xsd.Validate(doc); err != nil {
			return markFailed(KindXSDInvalid, "validating xml", err)
		}
		doc.State = StateValidated
		o.persist(doc)
		o.log.Info().Str("clave", doc.ClaveAcceso).Msg("step 2/6: xml validated")
	}

	// [3/6] sign
	if doc.State < StateSigned {
		cert, err := o.certLoader(doc.Emitter)
		if err != nil {
			return markFailed(KindSigningFailed, "loading certificate", err)
		}
		if err := SignXML(doc, cert); err != nil {
			return markFailed(KindSigningFailed, "signing xml", err)
		}
		o.persist(doc)
		o.log.Info().Str("clave", doc.ClaveAcceso).Msg("step 3/6: xml signed")
	}

	// [4/6] send to SRI: reception then poll authorization
	if doc.State < StateAuthorized && doc.State != StateReturned {
		// A document already RECEIVED is not submitted again; it resumes
		// at the authorization poll below.
		recepcion := RecepcionResult{Estado: EstadoRecibida}
		if doc.State < StateReceived {
			var err error
			recepcion, err = o.client.EnviarComprobante(ctx, doc.XMLSigned)
			if err != nil {
				// Connection failures keep the last persisted state so a
				// later Process call retries the submission.
				doc.AddMessage(SevError, string(KindConnection), "sending to sri failed", nil)
				o.persist(doc)
				return newError(KindConnection, true, err, "sending to sri")
			}
		}
		doc.State = StateReceived
		o.persist(doc)
		if recepcion.Estado == EstadoDevuelta {
			doc.State = StateReturned
			for _, m := range recepcion.Mensajes {
				doc.AddMessage(SevError, string(KindReturned), m, nil)
			}
			o.persist(doc)
			return newError(KindReturned, false, nil, "sri returned the comprobante")
		}

		pollCtx, cancel := context.WithTimeout(ctx, o.pollCeiling)
		auth, err := o.client.PollAuthorization(pollCtx, doc.ClaveAcceso, o.pollInterval)
		cancel()
		if err != nil {
			// The ceiling expired before SRI returned a final estado; doc
			// is already persisted at StateReceived above, so a later
			// call to PollStatus can pick the comprobante back up rather
			// than a terminal failure here.
			doc.AddMessage(SevWarning, string(KindTimeout), "polling authorization timed out, call PollStatus later", nil)
			o.persist(doc)
			return newError(KindTimeout, true, err, "polling authorization timed out")
		}
		switch auth.Estado {
		case EstadoAutorizada:
			doc.State = StateAuthorized
			doc.NumeroAutorizacion = auth.NumeroAutorizacion
			doc.FechaAutorizacion = auth.FechaAutorizacion
			doc.XMLAuthorized = auth.ComprobanteXML
			if len(doc.XMLAuthorized) == 0 {
				doc.XMLAuthorized = doc.XMLSigned
			}
		default:
			doc.State = StateReturned
			for _, m := range auth.Mensajes {
				doc.AddMessage(SevError, string(KindNotAuthorized), m, nil)
			}
		}
		o.persist(doc)
		o.log.Info().Str("clave", doc.ClaveAcceso).Str("estado", string(auth.Estado)).Msg("step 4/6: sri response received")

		if doc.State != StateAuthorized {
			return newError(KindNotAuthorized, false, nil, "sri did not authorize the comprobante")
		}
	}

	if doc.State != StateAuthorized {
		return nil
	}

	// [5/6] render RIDE — failure is observational only
	ride, err := RenderRIDE(doc, sale)
	if err != nil {
		doc.AddMessage(SevWarning, string(KindRenderFailed), err.Error(), nil)
	} else {
		doc.RIDE = ride
	}
	o.persist(doc)
	o.log.Info().Str("clave", doc.ClaveAcceso).Msg("step 5/6: ride rendered")

	// [6/6] email — failure is observational only
	if o.mailer != nil {
		header := sale.Header()
		if header.ClienteEmail != "" {
			if err := o.mailer.Send(doc, header); err != nil {
				doc.AddMessage(SevWarning, string(KindSendFailed), err.Error(), nil)
			}
		}
	}
	o.persist(doc)
	o.log.Info().Str("clave", doc.ClaveAcceso).Msg("step 6/6: email dispatched")

	return nil
}

func (o *Orchestrator) persist(doc *Document) {
	doc.UpdatedAt = time.Now()
	if err := o.store.Save(doc); err != nil {
		o.log.Error().Err(err).Str("document", doc.String()).Msg("persisting document failed")
	}
}

// Reprocess re-enters Process for a Document that previously failed or
// was returned, after the caller has addressed the underlying problem
// (e.g. corrected line data). It clears the terminal FAILED/RETURNED
// state back to the last successfully completed stage.
func (o *Orchestrator) Reprocess(ctx context.Context, sale SaleView, doc *Document) error {
	switch doc.State {
	case StateFailed, StateReturned:
		if len(doc.XMLSigned) != 0 {
			doc.State = StateSigned
		} else if len(doc.XMLBuilt) != 0 {
			doc.State = StateXMLBuilt
		} else {
			doc.State = StatePending
		}
	}
	return o.Process(ctx, sale, doc)
}

// PollStatus re-queries the SRI authorization status for a Document
// stuck in StateReceived, matching sri_ws.py's
// obtener_estado_comprobante convenience wrapper.
func (o *Orchestrator) PollStatus(ctx context.Context, doc *Document) error {
	auth, err := o.client.AutorizacionComprobante(ctx, doc.ClaveAcceso)
	if err != nil {
		return err
	}
	if auth.Estado == EstadoAutorizada {
		doc.State = StateAuthorized
		doc.NumeroAutorizacion = auth.NumeroAutorizacion
		doc.FechaAutorizacion = auth.FechaAutorizacion
		doc.XMLAuthorized = auth.ComprobanteXML
		o.persist(doc)
	}
	return nil
}
