package sri

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
	"github.com/shopspring/decimal"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// RenderRIDE builds the "Representación Impresa del Documento
// Electrónico" PDF: emitter header, buyer block, line-item table,
// totals, payment method, a Code128 barcode and a QR code of the access
// key, then embeds the authorized XML as a PDF attachment. Layout
// grounded on generador_pdf.py's GeneradorRIDE (reportlab + qrcode);
// barcode/QR rasterization via boombuler/barcode, layout via maroto/v2,
// attachment embedding via pdfcpu (the teacher's own dependency,
// repurposed here from attachment extraction to attachment embedding).
func RenderRIDE(doc *Document, sale SaleView) ([]byte, error) {
	if doc.ClaveAcceso == "" {
		return nil, fmt.Errorf("sri: cannot render ride without an access key")
	}

	barcodePNG, err := renderBarcode(doc.ClaveAcceso)
	if err != nil {
		return nil, fmt.Errorf("sri: rendering barcode: %w", err)
	}
	qrPNG, err := renderQR(doc.ClaveAcceso)
	if err != nil {
		return nil, fmt.Errorf("sri: rendering qr: %w", err)
	}

	m := buildMaroto(doc, sale, barcodePNG, qrPNG)
	document, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("sri: generating ride pdf: %w", err)
	}

	pdfBytes := document.GetBytes()
	if len(doc.XMLAuthorized) > 0 {
		pdfBytes, err = embedAuthorizedXML(pdfBytes, doc.NumeroComprobante, doc.XMLAuthorized)
		if err != nil {
			return nil, fmt.Errorf("sri: embedding authorized xml: %w", err)
		}
	}

	return pdfBytes, nil
}

func renderBarcode(claveAcceso string) ([]byte, error) {
	code, err := code128.Encode(claveAcceso)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, 400, 80)
	if err != nil {
		return nil, err
	}
	return encodePNG(scaled)
}

func renderQR(claveAcceso string) ([]byte, error) {
	code, err := qr.Encode(claveAcceso, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, 150, 150)
	if err != nil {
		return nil, err
	}
	return encodePNG(scaled)
}

func buildMaroto(doc *Document, sale SaleView, barcodePNG, qrPNG []byte) core.Maroto {
	header := sale.Header()
	cfg := config.NewBuilder().
		WithPageSize("A4").
		Build()
	m := maroto.New(cfg)

	m.AddRows(row.New(20).Add(
		col.New(8).Add(
			text.New(doc.Emitter.RazonSocial, text.WithStyle(&text.Style{Size: 12})),
			text.New("RUC: "+doc.Emitter.RUC),
			text.New(doc.Emitter.DirMatriz),
		),
		col.New(4).Add(
			text.New("FACTURA"),
			text.New(doc.NumeroComprobante),
		),
	))

	m.AddRows(row.New(10).Add(
		col.New(12).Add(
			text.New("Cliente: "+header.ClienteRazonSocial),
			text.New("Identificación: "+header.ClienteIdentificacion),
		),
	))

	totalSinImpuestos := decimal.Zero
	totalDescuento := decimal.Zero
	ivaByRate := map[string]decimal.Decimal{}
	ivaAmountByRate := map[string]decimal.Decimal{}

	for _, line := range sale.Lines() {
		subtotal := line.PrecioUnitario.Mul(line.Cantidad).Sub(line.Descuento)
		totalSinImpuestos = totalSinImpuestos.Add(subtotal)
		totalDescuento = totalDescuento.Add(line.Descuento)
		ivaByRate[line.CodigoIVA] = ivaByRate[line.CodigoIVA].Add(subtotal)
		ivaAmountByRate[line.CodigoIVA] = ivaAmountByRate[line.CodigoIVA].Add(ivaLineAmount(line.CodigoIVA, subtotal, line.TarifaIVA))

		m.AddRows(row.New(6).Add(
			col.New(2).Add(text.New(line.CodigoPrincipal)),
			col.New(4).Add(text.New(line.Descripcion)),
			col.New(1).Add(text.New(line.Cantidad.StringFixed(2))),
			col.New(2).Add(text.New(line.PrecioUnitario.StringFixed(2))),
			col.New(1).Add(text.New(line.Descuento.StringFixed(2))),
			col.New(2).Add(text.New(subtotal.StringFixed(2))),
		))
	}

	subtotal12 := ivaByRate["2"]
	subtotal0 := ivaByRate["0"].Add(ivaByRate["6"]).Add(ivaByRate["7"])
	totalIVA := decimal.Zero
	for _, amount := range ivaAmountByRate {
		totalIVA = totalIVA.Add(amount)
	}
	importeTotal := totalSinImpuestos.Add(totalIVA).Add(header.Propina)

	m.AddRows(row.New(8).Add(
		col.New(9).Add(text.New("")),
		col.New(3).Add(
			text.New("Subtotal 12%/15%: "+subtotal12.StringFixed(2)),
			text.New("Subtotal 0%: "+subtotal0.StringFixed(2)),
			text.New("Descuento: "+totalDescuento.StringFixed(2)),
			text.New("IVA: "+totalIVA.StringFixed(2)),
			text.New("Total: "+importeTotal.StringFixed(2)),
		),
	))

	formaPago := header.FormaPago
	if formaPago == "" {
		formaPago = "01"
	}
	m.AddRows(row.New(8).Add(
		col.New(12).Add(
			text.New("Forma de pago: "+formaPago),
			text.New("Valor: "+importeTotal.StringFixed(2)),
		),
	))

	m.AddRows(row.New(20).Add(
		col.New(6).Add(
			image.NewFromBytes(barcodePNG, extension.Png),
			text.New(doc.ClaveAcceso, text.WithStyle(&text.Style{Size: 6})),
		),
		col.New(2).Add(image.NewFromBytes(qrPNG, extension.Png)),
	))

	return m
}

// encodePNG rasterizes a 1-bit barcode.Barcode image into PNG bytes for
// embedding as a maroto image component.
func encodePNG(img barcode.Barcode) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// embedAuthorizedXML attaches xmlContent to pdfBytes as a named file,
// the inverse of the teacher's own cmd/einvoice/pdf.go
// (api.ExtractAttachmentsRaw). pdfcpu's attach API is file-path based,
// so the round trip goes through a scratch directory.
func embedAuthorizedXML(pdfBytes []byte, numeroComprobante string, xmlContent []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "sri-ride-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	inFile := filepath.Join(dir, "ride.pdf")
	outFile := filepath.Join(dir, "ride-attached.pdf")
	xmlFile := filepath.Join(dir, fmt.Sprintf("%s.xml", numeroComprobante))

	if err := os.WriteFile(inFile, pdfBytes, 0o600); err != nil {
		return nil, err
	}
	if err := os.WriteFile(xmlFile, xmlContent, 0o600); err != nil {
		return nil, err
	}

	if err := api.AddAttachmentsFile(inFile, outFile, []string{xmlFile}, nil); err != nil {
		return nil, err
	}

	return os.ReadFile(outFile)
}
