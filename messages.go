package sri

// Rule defines a structural or business rule: its code, the fields it
// constrains, and a human description. The IVA checks and the XML
// builder append DocumentMessages referencing a Rule's code; other
// stages record messages under their error Kind or their own code
// (e.g. "xsd-missing").
type Rule struct {
	Code        string
	Fields      []string
	Description string
}

// Rule naming convention:
// - R-SEQ-*: sequence allocator rules
// - R-KEY-*: access key rules
// - R-XML-*: comprobante structure rules
// - R-IVA-*: tax-category rules (mirrors SRI's codigoPorcentaje table)
var (
	RSEQ1 = Rule{
		Code:        "R-SEQ-1",
		Fields:      []string{"secuencial"},
		Description: "secuencial must be between 1 and 999999999",
	}
	RSEQ2 = Rule{
		Code:        "R-SEQ-2",
		Fields:      []string{"establecimiento", "puntoEmision"},
		Description: "establecimiento and puntoEmision must each be exactly 3 digits",
	}

	RKEY1 = Rule{
		Code:        "R-KEY-1",
		Fields:      []string{"claveAcceso"},
		Description: "claveAcceso must be exactly 49 digits",
	}
	RKEY2 = Rule{
		Code:        "R-KEY-2",
		Fields:      []string{"claveAcceso"},
		Description: "claveAcceso check digit (position 49, modulo 11) must match the computed value",
	}

	RXML1 = Rule{
		Code:        "R-XML-1",
		Fields:      []string{"infoTributaria"},
		Description: "infoTributaria must be present and carry ruc, claveAcceso, and codDoc",
	}
	RXML2 = Rule{
		Code:        "R-XML-2",
		Fields:      []string{"detalles"},
		Description: "a factura must contain at least one detalle line",
	}
	RXML3 = Rule{
		Code:        "R-XML-3",
		Fields:      []string{"totalSinImpuestos", "importeTotal"},
		Description: "importeTotal must equal totalSinImpuestos (line subtotals net of discounts) plus the sum of totalImpuesto valores plus propina",
	}

	RIVA1 = Rule{
		Code:        "R-IVA-1",
		Fields:      []string{"codigo", "tarifa"},
		Description: "codigoIVA \"2\" (tarifa 12/15%) lines must carry a non-zero tarifa",
	}
	RIVA2 = Rule{
		Code:        "R-IVA-2",
		Fields:      []string{"codigo", "tarifa"},
		Description: "codigoIVA \"0\" (tarifa 0%) lines must carry a zero tarifa",
	}
	RIVA3 = Rule{
		Code:        "R-IVA-3",
		Fields:      []string{"codigo"},
		Description: "codigoIVA \"6\"/\"7\" (no objeto / exento) lines must not compute an IVA amount",
	}
)
