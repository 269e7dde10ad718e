package sri_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	sri "github.com/repuestocontrol/sriinvoice"
)

type staticSale struct {
	h sri.SaleHeader
	l []sri.SaleLine
}

func (s staticSale) Header() sri.SaleHeader { return s.h }
func (s staticSale) Lines() []sri.SaleLine  { return s.l }

func sampleSale() staticSale {
	return staticSale{
		h: sri.SaleHeader{
			ID:                    "sale-1",
			FechaEmision:          time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC),
			ClienteTipoID:         "05",
			ClienteIdentificacion: "1710034065",
			ClienteRazonSocial:    "Juan Pérez",
			FormaPago:             "01",
		},
		l: []sri.SaleLine{
			{
				CodigoPrincipal: "REP-001",
				Descripcion:     "Filtro de aceite",
				Cantidad:        decimal.NewFromInt(2),
				PrecioUnitario:  decimal.NewFromFloat(10.00),
				CodigoIVA:       "2",
				TarifaIVA:       decimal.NewFromInt(15),
			},
		},
	}
}

func sampleDocument() *sri.Document {
	return &sri.Document{
		ID:      "doc-1",
		DocType: sri.DocInvoice,
		Emitter: sri.EmitterConfig{
			RUC:             "1790012345001",
			RazonSocial:     "Repuestos El Motor S.A.",
			DirMatriz:       "Av. Siempre Viva 123",
			Establecimiento: "001",
			PuntoEmision:    "001",
			Ambiente:        sri.AmbientePruebas,
			TipoEmision:     "1",
		},
		Secuencial:  1,
		ClaveAcceso: strings.Repeat("1", 49),
	}
}

func TestBuildXML_ContainsInfoTributaria(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()
	if err := sri.BuildXML(doc, sampleSale()); err != nil {
		t.Fatalf("BuildXML: %v", err)
	}

	xmlOutput := string(doc.XMLBuilt)
	for _, want := range []string{
		"<infoTributaria>",
		"<ruc>1790012345001</ruc>",
		"<codDoc>01</codDoc>",
		"<infoFactura>",
		"<detalles>",
		"<codigoPrincipal>REP-001</codigoPrincipal>",
	} {
		if !strings.Contains(xmlOutput, want) {
			t.Errorf("expected built xml to contain %q, got:\n%s", want, xmlOutput)
		}
	}

	if doc.State != sri.StateXMLBuilt {
		t.Errorf("expected state StateXMLBuilt, got %s", doc.State)
	}
}

func TestBuildXML_RejectsEmptyLines(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()
	sale := staticSale{h: sampleSale().h}

	if err := sri.BuildXML(doc, sale); err == nil {
		t.Fatal("expected an error when the sale has no lines")
	}
}

func TestBuildXML_RejectsUnsupportedDocType(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()
	doc.DocType = sri.DocWaybill

	if err := sri.BuildXML(doc, sampleSale()); err == nil {
		t.Fatal("expected an error for an unimplemented doc type body")
	}
}

func TestBuildXML_ComputesIVATotal(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()
	if err := sri.BuildXML(doc, sampleSale()); err != nil {
		t.Fatalf("BuildXML: %v", err)
	}

	xmlOutput := string(doc.XMLBuilt)
	// 2 * 10.00 = 20.00 base, 15% IVA = 3.00, total = 23.00
	if !strings.Contains(xmlOutput, "<importeTotal>23.00</importeTotal>") {
		t.Errorf("expected importeTotal of 23.00, got:\n%s", xmlOutput)
	}
}
