package sri_test

import (
	"testing"

	sri "github.com/repuestocontrol/sriinvoice"
)

func TestMailer_Send_RejectsMissingEmail(t *testing.T) {
	t.Parallel()

	mailer := sri.NewMailer(sri.SMTPConfig{Host: "localhost", Port: 587, From: "noreply@example.com"})
	doc := sampleDocument()
	doc.XMLAuthorized = []byte("<authorized/>")
	header := sampleSale().Header()
	header.ClienteEmail = ""

	if err := mailer.Send(doc, header); err == nil {
		t.Fatal("expected an error when the client has no email address")
	}
}

func TestMailer_Send_RejectsUnauthorizedDocument(t *testing.T) {
	t.Parallel()

	mailer := sri.NewMailer(sri.SMTPConfig{Host: "localhost", Port: 587, From: "noreply@example.com"})
	doc := sampleDocument()
	header := sampleSale().Header()
	header.ClienteEmail = "cliente@example.com"

	if err := mailer.Send(doc, header); err == nil {
		t.Fatal("expected an error when the document has no authorized xml yet")
	}
}
