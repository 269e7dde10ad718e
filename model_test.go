package sri_test

import (
	"testing"

	sri "github.com/repuestocontrol/sriinvoice"
)

func TestDocument_AddMessageAndHasErrors(t *testing.T) {
	t.Parallel()

	doc := &sri.Document{ID: "doc-1"}
	if doc.HasErrors() {
		t.Fatal("a fresh document should have no errors")
	}

	doc.AddMessage(sri.SevWarning, "W-1", "just a warning", nil)
	if doc.HasErrors() {
		t.Fatal("a warning-only message log should not report HasErrors")
	}

	doc.AddMessage(sri.SevError, "R-XML-1", "missing infoTributaria", map[string]string{"field": "ruc"})
	if !doc.HasErrors() {
		t.Fatal("expected HasErrors to report true after an error-level message")
	}
	if len(doc.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(doc.Messages))
	}
}

func TestDocumentState_Terminal(t *testing.T) {
	t.Parallel()

	terminal := []sri.DocumentState{sri.StateAuthorized, sri.StateReturned, sri.StateFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	nonTerminal := []sri.DocumentState{sri.StatePending, sri.StateXMLBuilt, sri.StateValidated, sri.StateSigned, sri.StateReceived}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
}

func TestDocumentState_OrderingDrivesResume(t *testing.T) {
	t.Parallel()

	if !(sri.StatePending < sri.StateXMLBuilt &&
		sri.StateXMLBuilt < sri.StateValidated &&
		sri.StateValidated < sri.StateSigned &&
		sri.StateSigned < sri.StateReceived &&
		sri.StateReceived < sri.StateAuthorized) {
		t.Fatal("document state constants must stay in pipeline order: Orchestrator.Process compares states with <")
	}
}

func TestDocType_Valid(t *testing.T) {
	t.Parallel()

	for _, dt := range []sri.DocType{sri.DocInvoice, sri.DocCreditNote, sri.DocDebitNote, sri.DocWaybill, sri.DocWithholding, sri.DocPublicPurch} {
		if !dt.Valid() {
			t.Errorf("expected %s to be a valid doc type", dt)
		}
	}
	if sri.DocType("99").Valid() {
		t.Error("expected an unknown doc type code to be invalid")
	}
}
