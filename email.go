package sri

import (
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// Mailer dispatches the authorized comprobante by email, attaching the
// authorized XML and the rendered RIDE PDF. Grounded on
// email_comprobantes.py's GestorEmailComprobantes.enviar_comprobante.
type Mailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewMailer(cfg SMTPConfig) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.UseSSL
	return &Mailer{cfg: cfg, dialer: dialer}
}

// Send emails the authorized XML and RIDE PDF to header.ClienteEmail.
// Matches enviar_comprobante's subject line and body template, with the
// subject interpolating the numero de comprobante rather than just
// "numero_factura" since this pipeline handles more than one doc type.
func (m *Mailer) Send(doc *Document, header SaleHeader) error {
	if header.ClienteEmail == "" {
		return fmt.Errorf("sri: cliente has no email, not sending comprobante")
	}
	if len(doc.XMLAuthorized) == 0 {
		return fmt.Errorf("sri: document is not authorized, not sending")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", header.ClienteEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Comprobante Electrónico - %s %s", doc.DocType, doc.NumeroComprobante))
	msg.SetBody("text/plain", emailBody(doc, header))

	msg.Attach(fmt.Sprintf("%s.xml", doc.NumeroComprobante), gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(doc.XMLAuthorized)
		return err
	}))
	if len(doc.RIDE) > 0 {
		msg.Attach(fmt.Sprintf("%s.pdf", doc.NumeroComprobante), gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(doc.RIDE)
			return err
		}))
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return newError(KindSendFailed, true, err, "sending comprobante email to %s", header.ClienteEmail)
	}
	return nil
}

func emailBody(doc *Document, header SaleHeader) string {
	return fmt.Sprintf(`Estimado/a cliente,

Se le hace llegar su comprobante electrónico.

DATOS DEL COMPROBANTE:
- Número: %s
- Cliente: %s
- Total incluido: ver XML/PDF adjuntos

Este comprobante ha sido autorizado por el SRI con número de autorización %s.

Archivos adjuntos:
- Comprobante electrónico en formato XML
- Representación impresa (PDF)

Por favor conserve este documento para sus registros.

Saludos cordiales.
`, doc.NumeroComprobante, header.ClienteRazonSocial, doc.NumeroAutorizacion)
}
