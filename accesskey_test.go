package sri_test

import (
	"testing"
	"time"

	sri "github.com/repuestocontrol/sriinvoice"
)

func TestGenerateAccessKey_Length(t *testing.T) {
	t.Parallel()

	key, err := sri.GenerateAccessKey(sri.AccessKeyInput{
		FechaEmision:    time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC),
		DocType:         sri.DocInvoice,
		RUC:             "1790012345001",
		Ambiente:        sri.AmbientePruebas,
		Establecimiento: "001",
		PuntoEmision:    "001",
		Secuencial:      123,
		TipoEmision:     "1",
	})
	if err != nil {
		t.Fatalf("GenerateAccessKey: %v", err)
	}
	if len(key) != 49 {
		t.Fatalf("expected a 49-digit access key, got %d digits: %s", len(key), key)
	}
	if err := sri.ValidateAccessKey(key); err != nil {
		t.Fatalf("ValidateAccessKey rejected its own output: %v", err)
	}
}

func TestGenerateAccessKey_RejectsBadRUC(t *testing.T) {
	t.Parallel()

	_, err := sri.GenerateAccessKey(sri.AccessKeyInput{
		FechaEmision:    time.Now(),
		DocType:         sri.DocInvoice,
		RUC:             "123",
		Ambiente:        sri.AmbientePruebas,
		Establecimiento: "001",
		PuntoEmision:    "001",
		Secuencial:      1,
	})
	if err == nil {
		t.Fatal("expected an error for a short RUC")
	}
}

func TestValidateAccessKey_RejectsTamperedCheckDigit(t *testing.T) {
	t.Parallel()

	key, err := sri.GenerateAccessKey(sri.AccessKeyInput{
		FechaEmision:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DocType:         sri.DocInvoice,
		RUC:             "1790012345001",
		Ambiente:        sri.AmbientePruebas,
		Establecimiento: "001",
		PuntoEmision:    "001",
		Secuencial:      1,
	})
	if err != nil {
		t.Fatalf("GenerateAccessKey: %v", err)
	}

	tampered := []byte(key)
	if tampered[48] == '9' {
		tampered[48] = '8'
	} else {
		tampered[48] = '9'
	}

	if err := sri.ValidateAccessKey(string(tampered)); err == nil {
		t.Fatal("expected a tampered check digit to be rejected")
	}
}

func TestValidateCedula(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cedula string
		wantOK bool
	}{
		{"1710034065", true},
		{"1710034066", false}, // tampered check digit
		{"9999999999", false}, // invalid province
	}

	for _, c := range cases {
		err := sri.ValidateCedula(c.cedula)
		if (err == nil) != c.wantOK {
			t.Errorf("ValidateCedula(%q) = %v, want ok=%v", c.cedula, err, c.wantOK)
		}
	}
}

func TestValidateRUC(t *testing.T) {
	t.Parallel()

	if err := sri.ValidateRUC("1790012345001"); err != nil {
		t.Errorf("expected a well-formed RUC to validate, got %v", err)
	}
	if err := sri.ValidateRUC("99"); err == nil {
		t.Error("expected a short RUC to be rejected")
	}
}
