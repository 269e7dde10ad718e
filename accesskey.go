package sri

import (
	"fmt"
	"strconv"
	"time"
)

// modulus11Weights is the right-to-left multiplier cycle used by SRI's
// check digit algorithm, ported from sri.py's calcular_digito_verificador.
var modulus11Weights = [8]int{2, 3, 4, 5, 6, 7, 8, 9}

// modulus11CheckDigit computes the SRI mod-11 check digit for a numeric
// string, applying the weight cycle from the rightmost digit.
func modulus11CheckDigit(digits string) (int, error) {
	sum := 0
	weightIdx := 0
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if d < '0' || d > '9' {
			return 0, fmt.Errorf("sri: non-digit %q in access key body", d)
		}
		sum += int(d-'0') * modulus11Weights[weightIdx%8]
		weightIdx++
	}
	r := sum % 11
	d := 11 - r
	switch d {
	case 11:
		return 0, nil
	case 10:
		return 1, nil
	default:
		return d, nil
	}
}

// AccessKeyInput carries every field the 49-digit claveAcceso encodes.
type AccessKeyInput struct {
	FechaEmision    time.Time
	DocType         DocType
	RUC             string
	Ambiente        Ambiente
	Establecimiento string
	PuntoEmision    string
	Secuencial      int
	TipoEmision     string // "1" normal
}

// GenerateAccessKey builds the 49-digit claveAcceso, ported field-for-field
// from sri.py's generar_clave_acceso: ddmmyyyy(8) + tipoComprobante(2) +
// ruc(13) + ambiente(1) + serie(6) + secuencial(9) + tipoEmision(1) +
// codigoNumerico(8) + checkDigit(1) = 49.
func GenerateAccessKey(in AccessKeyInput) (string, error) {
	if len(in.RUC) != 13 {
		return "", fmt.Errorf("sri: ruc must be 13 digits, got %q", in.RUC)
	}
	if err := ValidateSequentialKey(in.Establecimiento, in.PuntoEmision); err != nil {
		return "", err
	}
	if !in.DocType.Valid() {
		return "", fmt.Errorf("sri: invalid doc type %q", in.DocType)
	}
	if in.Secuencial < minSecuencial || in.Secuencial > maxSecuencial {
		return "", fmt.Errorf("sri: secuencial %d out of range", in.Secuencial)
	}

	fecha := in.FechaEmision.Format("02012006")
	serie := in.Establecimiento + in.PuntoEmision
	codigoNumerico := codigoNumericoFromNanos(time.Now())
	tipoEmision := in.TipoEmision
	if tipoEmision == "" {
		tipoEmision = "1"
	}

	body := fmt.Sprintf("%s%s%s%s%s%09d%s%s",
		fecha, string(in.DocType), in.RUC, string(in.Ambiente), serie, in.Secuencial, tipoEmision, codigoNumerico)

	if len(body) != 48 {
		return "", fmt.Errorf("sri: internal error building access key body, got %d chars want 48", len(body))
	}

	check, err := modulus11CheckDigit(body)
	if err != nil {
		return "", err
	}

	return body + strconv.Itoa(check), nil
}

// codigoNumericoFromNanos derives an 8-digit pseudo-random numeric code
// the way sri.py does (the last 8 digits of a Unix timestamp fraction),
// zero-padded.
func codigoNumericoFromNanos(t time.Time) string {
	n := t.UnixNano() % 100000000
	if n < 0 {
		n = -n
	}
	return fmt.Sprintf("%08d", n)
}

// ValidateAccessKey checks that key is 49 digits and that its check digit
// matches the recomputed value.
func ValidateAccessKey(key string) error {
	if len(key) != 49 {
		return newError(KindInvalidSequential, false, nil, "claveAcceso must be 49 digits, got %d", len(key))
	}
	want, err := modulus11CheckDigit(key[:48])
	if err != nil {
		return newError(KindInvalidSequential, false, err, "claveAcceso body is not numeric")
	}
	got := int(key[48] - '0')
	if key[48] < '0' || key[48] > '9' {
		return newError(KindInvalidSequential, false, nil, "claveAcceso check digit is not numeric")
	}
	if got != want {
		return newError(KindInvalidSequential, false, nil, "claveAcceso check digit mismatch: got %d want %d", got, want)
	}
	return nil
}

// ValidateRUC applies SRI's basic 13-digit RUC shape check (all digits,
// province code 01-24 or 30), ported from sri.py's validar_ruc. The
// third digit (taxpayer class) is not checked.
func ValidateRUC(ruc string) error {
	if len(ruc) != 13 || !isDigits(ruc) {
		return fmt.Errorf("sri: ruc must be 13 digits, got %q", ruc)
	}
	province, _ := strconv.Atoi(ruc[0:2])
	if province < 1 || (province > 24 && province != 30) {
		return fmt.Errorf("sri: ruc province code %02d is invalid", province)
	}
	return nil
}

// ValidateCedula applies Ecuador's mod-10 cédula check digit algorithm,
// ported from sri.py's validar_cedula. Supplements the access-key mod-11
// check with the separate natural-person-ID validation the distilled
// pipeline spec omitted.
func ValidateCedula(cedula string) error {
	if len(cedula) != 10 || !isDigits(cedula) {
		return fmt.Errorf("sri: cedula must be 10 digits, got %q", cedula)
	}
	province, _ := strconv.Atoi(cedula[0:2])
	if province < 1 || province > 24 {
		return fmt.Errorf("sri: cedula province code %02d is invalid", province)
	}
	coef := [9]int{2, 1, 2, 1, 2, 1, 2, 1, 2}
	sum := 0
	for i := 0; i < 9; i++ {
		d := int(cedula[i]-'0') * coef[i]
		if d >= 10 {
			d -= 9
		}
		sum += d
	}
	check := 0
	if m := sum % 10; m != 0 {
		check = 10 - m
	}
	want := int(cedula[9] - '0')
	if check != want {
		return fmt.Errorf("sri: cedula check digit mismatch: got %d want %d", want, check)
	}
	return nil
}
