package sri

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// DocType is the SRI comprobante type code (campo tipoComprobante).
	DocType string
	// DocumentState is a position in the comprobante lifecycle state machine.
	DocumentState int
	// Severity classifies a DocumentMessage.
	Severity int
)

// SRI tipoComprobante codes; Valid lists the accepted set.
const (
	DocInvoice      DocType = "01" // factura
	DocCreditNote   DocType = "04" // nota de crédito
	DocDebitNote    DocType = "05" // nota de débito
	DocWaybill      DocType = "06" // guía de remisión
	DocWithholding  DocType = "07" // comprobante de retención
	DocPublicPurch  DocType = "08" // comprobante público
)

func (d DocType) String() string {
	switch d {
	case DocInvoice:
		return "factura"
	case DocCreditNote:
		return "nota de crédito"
	case DocDebitNote:
		return "nota de débito"
	case DocWaybill:
		return "guía de remisión"
	case DocWithholding:
		return "comprobante de retención"
	case DocPublicPurch:
		return "comprobante público"
	}
	return "unknown"
}

// Valid reports whether d is one of the known SRI document type codes.
// BuildXML builds a body only for DocInvoice and rejects the others.
func (d DocType) Valid() bool {
	switch d {
	case DocInvoice, DocCreditNote, DocDebitNote, DocWaybill, DocWithholding, DocPublicPurch:
		return true
	}
	return false
}

// State machine order mirrors procesamiento_sri.py's EstadoProcesamiento.
// Do not reorder: Orchestrator.Process compares states with <.
const (
	StatePending DocumentState = iota
	StateXMLBuilt
	StateValidated
	StateSigned
	StateReceived
	StateAuthorized
	StateReturned
	StateFailed
)

func (s DocumentState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateXMLBuilt:
		return "XML_BUILT"
	case StateValidated:
		return "VALIDATED"
	case StateSigned:
		return "SIGNED"
	case StateReceived:
		return "RECEIVED"
	case StateAuthorized:
		return "AUTHORIZED"
	case StateReturned:
		return "RETURNED"
	case StateFailed:
		return "FAILED"
	}
	return "unknown"
}

// Terminal reports whether s is a state the orchestrator never advances
// past: a resumed pipeline must treat these as already finished.
func (s DocumentState) Terminal() bool {
	return s == StateAuthorized || s == StateReturned || s == StateFailed
}

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "unknown"
}

// DocumentMessage is one entry in a Document's append-only message log.
type DocumentMessage struct {
	Severity Severity
	Code     string
	Text     string
	Extra    map[string]string
	At       time.Time
}

// EmitterConfig holds the data that identifies and authorizes an emitter
// (an establecimiento/punto de emisión pair shares one EmitterConfig).
type EmitterConfig struct {
	RUC                    string
	RazonSocial            string
	NombreComercial        string
	DirMatriz             string
	Establecimiento        string // 3 digits
	PuntoEmision           string // 3 digits
	DirEstablecimiento     string
	ContribuyenteEspecial  string // resolution number, empty if not a special taxpayer
	ObligadoContabilidad   bool
	Ambiente               Ambiente
	TipoEmision            string // "1" = normal
	CertificatePath        string
	CertificatePassword    string
}

// Ambiente is the SRI environment code ("1" pruebas, "2" producción).
type Ambiente string

const (
	AmbientePruebas    Ambiente = "1"
	AmbienteProduccion Ambiente = "2"
)

// SaleHeader is the read-only header data the pipeline pulls from the
// embedding application's own sale record. The pipeline never owns or
// mutates sale data — it only reads it through SaleView.
type SaleHeader struct {
	ID                 string
	FechaEmision       time.Time
	ClienteTipoID      string // "04" ruc, "05" cedula, "06" pasaporte, "07" consumidor final
	ClienteIdentificacion string
	ClienteRazonSocial string
	ClienteDireccion   string
	ClienteEmail       string
	ClienteTelefono    string
	FormaPago          string // SRI forma de pago code, defaults to "01" (cash)
	Propina            decimal.Decimal
}

// SaleLine is one line item of the underlying sale.
type SaleLine struct {
	CodigoPrincipal string
	Descripcion     string
	Cantidad        decimal.Decimal
	PrecioUnitario  decimal.Decimal
	Descuento       decimal.Decimal
	CodigoIVA       string // "2" 12/15%, "0" zero-rate, "6" no IVA, "7" exento
	TarifaIVA       decimal.Decimal
}

// SaleView is the only way the pipeline observes the sale it is invoicing.
type SaleView interface {
	Header() SaleHeader
	Lines() []SaleLine
}

// Document is the persistent record of one comprobante's progress through
// the pipeline. Every stage reads and writes a Document; nothing else is
// shared mutable state.
type Document struct {
	ID            string
	DocType       DocType
	State         DocumentState
	Emitter       EmitterConfig
	Secuencial    int
	ClaveAcceso   string
	NumeroComprobante string

	XMLBuilt      []byte
	XMLSigned     []byte
	XMLAuthorized []byte

	NumeroAutorizacion string
	FechaAutorizacion  time.Time

	RIDE []byte

	Messages []DocumentMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddMessage appends a message to the document's log. Messages are never
// mutated or removed once appended.
func (d *Document) AddMessage(sev Severity, code, text string, extra map[string]string) {
	d.Messages = append(d.Messages, DocumentMessage{
		Severity: sev,
		Code:     code,
		Text:     text,
		Extra:    extra,
	})
}

// HasErrors reports whether the message log contains any SevError entry.
func (d *Document) HasErrors() bool {
	for _, m := range d.Messages {
		if m.Severity == SevError {
			return true
		}
	}
	return false
}

func (d *Document) String() string {
	return fmt.Sprintf("Document[%s %s %s state=%s]", d.DocType, d.NumeroComprobante, d.ClaveAcceso, d.State)
}
