package sri

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

var ErrWrite = errors.New("sri: building the comprobante XML failed")
var ErrUnsupportedDocType = errors.New("sri: unsupported doc type")

// clienteTipoIDCodes is the set of SRI tipoIdentificacionComprador codes
// accepted in SaleHeader.ClienteTipoID, which is written to the XML as is.
var clienteTipoIDCodes = map[string]bool{"04": true, "05": true, "06": true, "07": true}

// money formats a decimal to two fixed places, as every SRI monetary
// field requires.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// writeInfoTributaria builds the header block common to every doc type.
func writeInfoTributaria(doc *Document, root *etree.Element) {
	it := root.CreateElement("infoTributaria")
	it.CreateElement("ambiente").SetText(string(doc.Emitter.Ambiente))
	it.CreateElement("tipoEmision").SetText(doc.Emitter.TipoEmision)
	it.CreateElement("razonSocial").SetText(doc.Emitter.RazonSocial)
	if doc.Emitter.NombreComercial != "" {
		it.CreateElement("nombreComercial").SetText(doc.Emitter.NombreComercial)
	}
	it.CreateElement("ruc").SetText(doc.Emitter.RUC)
	it.CreateElement("claveAcceso").SetText(doc.ClaveAcceso)
	it.CreateElement("codDoc").SetText(string(doc.DocType))
	it.CreateElement("estab").SetText(doc.Emitter.Establecimiento)
	it.CreateElement("ptoEmi").SetText(doc.Emitter.PuntoEmision)
	it.CreateElement("secuencial").SetText(fmt.Sprintf("%09d", doc.Secuencial))
	it.CreateElement("dirMatriz").SetText(doc.Emitter.DirMatriz)
	if doc.Emitter.ContribuyenteEspecial != "" {
		it.CreateElement("contribuyenteEspecial").SetText(doc.Emitter.ContribuyenteEspecial)
	}
	obligado := "NO"
	if doc.Emitter.ObligadoContabilidad {
		obligado = "SI"
	}
	it.CreateElement("obligadoContabilidad").SetText(obligado)
}

// writeInfoFactura builds the body for doc type "01" (factura), ported
// field-for-field from sri.py's generar_xml_factura.
func writeInfoFactura(doc *Document, sale SaleView, root *etree.Element) error {
	header := sale.Header()
	lines := sale.Lines()
	if len(lines) == 0 {
		return fmt.Errorf("%w: factura must contain at least one detalle", ErrWrite)
	}
	if !clienteTipoIDCodes[header.ClienteTipoID] {
		return fmt.Errorf("%w: invalid tipoIdentificacionComprador %q", ErrWrite, header.ClienteTipoID)
	}

	inf := root.CreateElement("infoFactura")
	inf.CreateElement("fechaEmision").SetText(header.FechaEmision.Format("02/01/2006"))
	inf.CreateElement("dirEstablecimiento").SetText(doc.Emitter.DirEstablecimiento)
	inf.CreateElement("tipoIdentificacionComprador").SetText(header.ClienteTipoID)
	inf.CreateElement("razonSocialComprador").SetText(header.ClienteRazonSocial)
	inf.CreateElement("identificacionComprador").SetText(header.ClienteIdentificacion)

	totalSinImpuestos := decimal.Zero
	totalDescuento := decimal.Zero
	ivaByRate := map[string]decimal.Decimal{} // codigoIVA -> accumulated base
	ivaAmountByRate := map[string]decimal.Decimal{}

	detalles := inf.CreateElement("detalles")
	for _, line := range lines {
		subtotal := line.PrecioUnitario.Mul(line.Cantidad).Sub(line.Descuento)
		totalSinImpuestos = totalSinImpuestos.Add(subtotal)
		totalDescuento = totalDescuento.Add(line.Descuento)

		det := detalles.CreateElement("detalle")
		det.CreateElement("codigoPrincipal").SetText(line.CodigoPrincipal)
		det.CreateElement("descripcion").SetText(line.Descripcion)
		det.CreateElement("cantidad").SetText(line.Cantidad.StringFixed(6))
		det.CreateElement("precioUnitario").SetText(line.PrecioUnitario.StringFixed(6))
		det.CreateElement("descuento").SetText(money(line.Descuento))
		det.CreateElement("precioTotalSinImpuesto").SetText(money(subtotal))

		impuestos := det.CreateElement("impuestos")
		imp := impuestos.CreateElement("impuesto")
		imp.CreateElement("codigo").SetText("2") // IVA
		imp.CreateElement("codigoPorcentaje").SetText(line.CodigoIVA)
		imp.CreateElement("tarifa").SetText(formatRate(line.TarifaIVA))
		imp.CreateElement("baseImponible").SetText(money(subtotal))

		ivaAmount := ivaLineAmount(line.CodigoIVA, subtotal, line.TarifaIVA)
		imp.CreateElement("valor").SetText(money(ivaAmount))

		ivaByRate[line.CodigoIVA] = ivaByRate[line.CodigoIVA].Add(subtotal)
		ivaAmountByRate[line.CodigoIVA] = ivaAmountByRate[line.CodigoIVA].Add(ivaAmount)
	}

	inf.CreateElement("totalSinImpuestos").SetText(money(totalSinImpuestos))
	inf.CreateElement("totalDescuento").SetText(money(totalDescuento))

	totalConImpuestos := inf.CreateElement("totalConImpuestos")
	totalIVA := decimal.Zero
	for codigo, base := range ivaByRate {
		ti := totalConImpuestos.CreateElement("totalImpuesto")
		ti.CreateElement("codigo").SetText("2")
		ti.CreateElement("codigoPorcentaje").SetText(codigo)
		ti.CreateElement("baseImponible").SetText(money(base))
		amount := ivaAmountByRate[codigo]
		ti.CreateElement("valor").SetText(money(amount))
		totalIVA = totalIVA.Add(amount)
	}

	inf.CreateElement("propina").SetText(money(header.Propina))
	importeTotal := totalSinImpuestos.Add(totalIVA).Add(header.Propina)
	inf.CreateElement("importeTotal").SetText(money(importeTotal))
	inf.CreateElement("moneda").SetText("DOLAR")

	pagos := inf.CreateElement("pagos")
	pago := pagos.CreateElement("pago")
	formaPago := header.FormaPago
	if formaPago == "" {
		formaPago = "01"
	}
	pago.CreateElement("formaPago").SetText(formaPago)
	pago.CreateElement("total").SetText(money(importeTotal))

	doc.AddMessage(SevInfo, RXML3.Code, fmt.Sprintf("computed importeTotal=%s totalSinImpuestos=%s totalDescuento=%s",
		money(importeTotal), money(totalSinImpuestos), money(totalDescuento)), nil)

	return nil
}

// ivaLineAmount computes the IVA amount for one line given its category
// code, matching sri.py's iva = round(subtotal * (tarifa/100), 2) for
// category "2" and zero for every other category.
func ivaLineAmount(codigoIVA string, base decimal.Decimal, tarifa decimal.Decimal) decimal.Decimal {
	switch codigoIVA {
	case "2":
		return base.Mul(tarifa).Div(decimal.NewFromInt(100)).Round(2)
	default:
		return decimal.Zero
	}
}

func formatRate(tarifa decimal.Decimal) string {
	return tarifa.StringFixed(2)
}

// BuildXML constructs the comprobante XML for doc.DocType and stores the
// result on doc.XMLBuilt, advancing doc.State to StateXMLBuilt. Mirrors
// sri.py's generar_xml_factura and the teacher's writeCII/Write dispatch
// shape (one root builder dispatching on type, sub-builders writing
// one element subtree each).
func BuildXML(doc *Document, sale SaleView) error {
	switch doc.DocType {
	case DocInvoice:
		// supported below
	case DocCreditNote, DocDebitNote, DocWaybill, DocWithholding, DocPublicPurch:
		return fmt.Errorf("%w: %s body is not implemented, no xml is built", ErrUnsupportedDocType, doc.DocType)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDocType, doc.DocType)
	}

	before := len(doc.Messages)
	CheckIVA(doc, sale)
	if len(doc.Messages) > before {
		return fmt.Errorf("%w: codigoIVA/tarifa inconsistency, see document messages", ErrWrite)
	}

	etreeDoc := etree.NewDocument()
	etreeDoc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="no"`)
	root := etreeDoc.CreateElement("factura")
	root.CreateAttr("id", "comprobante")
	root.CreateAttr("version", "1.1.0")

	writeInfoTributaria(doc, root)
	if err := writeInfoFactura(doc, sale, root); err != nil {
		return err
	}

	etreeDoc.Indent(2)
	var buf bytes.Buffer
	if _, err := etreeDoc.WriteTo(&buf); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	doc.XMLBuilt = buf.Bytes()
	doc.State = StateXMLBuilt
	return nil
}
