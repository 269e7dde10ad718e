package sri

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// CheckIVA validates every sale line's IVA category against SRI's
// codigoPorcentaje rules and appends a DocumentMessage per violation.
// Adapted from the teacher's per-VAT-category check methods
// (checkVATStandard/checkVATZero/checkVATExempt/checkVATNotSubject):
// same per-line-then-per-category shape, generalized from EN16931's
// S/Z/E/O category codes to SRI's "2"/"0"/"6"/"7" codigoPorcentaje
// values.
func CheckIVA(doc *Document, sale SaleView) {
	checkIVAStandard(doc, sale)
	checkIVAZero(doc, sale)
	checkIVAExemptOrNotSubject(doc, sale)
}

// checkIVAStandard validates R-IVA-1: codigoIVA "2" (12%/15% rate) lines
// must carry a non-zero tarifa.
func checkIVAStandard(doc *Document, sale SaleView) {
	for i, line := range sale.Lines() {
		if line.CodigoIVA == "2" && line.TarifaIVA.IsZero() {
			doc.AddMessage(SevError, RIVA1.Code, "línea con codigoIVA 2 (tarifa gravada) debe tener una tarifa distinta de cero",
				map[string]string{"linea": strconv.Itoa(i)})
		}
	}
}

// checkIVAZero validates R-IVA-2: codigoIVA "0" (zero rate) lines must
// carry a zero tarifa, mirroring check_vat_zero.go's BR-Z-5 (the VAT
// rate of a zero-rated line must be 0).
func checkIVAZero(doc *Document, sale SaleView) {
	for i, line := range sale.Lines() {
		if line.CodigoIVA == "0" && !line.TarifaIVA.IsZero() {
			doc.AddMessage(SevError, RIVA2.Code, "línea con codigoIVA 0 (tarifa 0%) no debe tener una tarifa distinta de cero",
				map[string]string{"linea": strconv.Itoa(i)})
		}
	}
}

// checkIVAExemptOrNotSubject validates R-IVA-3: codigoIVA "6" (no
// objeto de IVA) and "7" (exento) lines must not carry a tarifa that
// computes a non-zero IVA amount on the line subtotal, mirroring
// check_vat_exempt.go/check_vat_notsubject.go's requirement that an
// exempt/not-subject category contribute zero VAT.
func checkIVAExemptOrNotSubject(doc *Document, sale SaleView) {
	for i, line := range sale.Lines() {
		if line.CodigoIVA != "6" && line.CodigoIVA != "7" {
			continue
		}
		subtotal := line.PrecioUnitario.Mul(line.Cantidad).Sub(line.Descuento)
		if subtotal.Mul(line.TarifaIVA).Div(decimal.NewFromInt(100)).Round(2).Sign() != 0 {
			doc.AddMessage(SevError, RIVA3.Code, "línea exenta / no objeto de IVA no debe generar valor de IVA",
				map[string]string{"linea": strconv.Itoa(i)})
		}
	}
}

