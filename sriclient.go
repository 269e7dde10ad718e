package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// EstadoComprobante mirrors sri_ws.py's EstadoComprobante enum.
type EstadoComprobante string

const (
	EstadoRecibida     EstadoComprobante = "RECIBIDA"
	EstadoDevuelta     EstadoComprobante = "DEVUELTA"
	EstadoAutorizada   EstadoComprobante = "AUTORIZADO"
	EstadoNoAutorizada EstadoComprobante = "NO AUTORIZADO"
	EstadoEnProceso    EstadoComprobante = "EN PROCESO"
)

// RecepcionResult is the parsed response of validarComprobante.
type RecepcionResult struct {
	Estado     EstadoComprobante
	Mensajes   []string
}

// AutorizacionResult is the parsed response of autorizacionComprobante.
type AutorizacionResult struct {
	ClaveAcceso        string
	Estado             EstadoComprobante
	NumeroAutorizacion string
	FechaAutorizacion  time.Time
	Mensajes           []string
	ComprobanteXML     []byte
}

// SRIClient is a stateless-after-construction SOAP client for the two
// SRI web service operations this pipeline needs: reception and
// authorization. Grounded on sri_ws.py's SRIWebService, with retry via
// backoff and a circuit breaker guarding the HTTP round trip so a
// prolonged SRI outage fails fast instead of queuing up full timeouts
// per document.
type SRIClient struct {
	httpClient *http.Client
	cfg        SOAPConfig
	breaker    *gobreaker.CircuitBreaker
	log        zerolog.Logger
}

func NewSRIClient(cfg SOAPConfig, log zerolog.Logger) *SRIClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sri-soap",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &SRIClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		breaker:    breaker,
		log:        log,
	}
}

// EnviarComprobante submits the signed XML for reception. Mirrors
// sri_ws.py's enviar_comprobante.
func (c *SRIClient) EnviarComprobante(ctx context.Context, xmlContent []byte) (RecepcionResult, error) {
	envelope := buildRecepcionEnvelope(xmlContent)
	body, err := c.callWithRetry(ctx, c.cfg.RecepcionURL, envelope, "validarComprobante")
	if err != nil {
		return RecepcionResult{}, err
	}
	return parseRecepcionResponse(body)
}

// AutorizacionComprobante queries the authorization status of one access
// key. Mirrors sri_ws.py's autorizacion_comprobante.
func (c *SRIClient) AutorizacionComprobante(ctx context.Context, claveAcceso string) (AutorizacionResult, error) {
	envelope := buildAutorizacionEnvelope([]string{claveAcceso})
	body, err := c.callWithRetry(ctx, c.cfg.AutorizacionURL, envelope, "autorizacionComprobante")
	if err != nil {
		return AutorizacionResult{}, err
	}
	results, err := parseAutorizacionResponse(body)
	if err != nil {
		return AutorizacionResult{}, err
	}
	if len(results) == 0 {
		return AutorizacionResult{}, newError(KindNotAuthorized, true, nil, "no autorizacion entry for %s", claveAcceso)
	}
	return results[0], nil
}

// AutorizacionComprobanteLote queries authorization status for multiple
// access keys in one call. Carried forward from sri_ws.py's
// autorizacion_comprobante_lote, dropped by the distilled spec but cheap
// to keep once the single-key path exists.
func (c *SRIClient) AutorizacionComprobanteLote(ctx context.Context, clavesAcceso []string) ([]AutorizacionResult, error) {
	envelope := buildAutorizacionEnvelope(clavesAcceso)
	body, err := c.callWithRetry(ctx, c.cfg.AutorizacionURL, envelope, "autorizacionComprobanteLote")
	if err != nil {
		return nil, err
	}
	return parseAutorizacionResponse(body)
}

// PollAuthorization polls AutorizacionComprobante until the document
// leaves EstadoEnProceso or ctx is done, honoring the bounded polling
// ceiling the orchestrator configures via ctx's deadline.
func (c *SRIClient) PollAuthorization(ctx context.Context, claveAcceso string, interval time.Duration) (AutorizacionResult, error) {
	for {
		res, err := c.AutorizacionComprobante(ctx, claveAcceso)
		if err != nil {
			return AutorizacionResult{}, err
		}
		if res.Estado != EstadoEnProceso {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return AutorizacionResult{}, newError(KindTimeout, false, ctx.Err(), "polling authorization for %s", claveAcceso)
		case <-time.After(interval):
		}
	}
}

func (c *SRIClient) callWithRetry(ctx context.Context, url string, envelope []byte, operation string) ([]byte, error) {
	var result []byte
	expo := backoff.NewExponentialBackOff()
	if c.cfg.RetryBaseDelay > 0 {
		expo.InitialInterval = c.cfg.RetryBaseDelay
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.cfg.MaxRetries)), ctx)

	op := func() error {
		raw, err := c.breaker.Execute(func() (any, error) {
			return c.post(ctx, url, envelope)
		})
		if err != nil {
			c.log.Warn().Err(err).Str("operation", operation).Msg("sri soap call failed, retrying")
			return err
		}
		result = raw.([]byte)
		return nil
	}

	if err := backoff.Retry(op, bo); err != nil {
		return nil, newError(KindConnection, true, err, "calling %s", operation)
	}
	return result, nil
}

func (c *SRIClient) post(ctx context.Context, url string, envelope []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(envelope))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("sri: soap call returned status %d", resp.StatusCode)
	}
	return body, nil
}

func buildRecepcionEnvelope(xmlContent []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(xmlContent)
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ec="http://ec.gob.sri.ws.recepcion">
  <soapenv:Body>
    <ec:validarComprobante>
      <xml>%s</xml>
    </ec:validarComprobante>
  </soapenv:Body>
</soapenv:Envelope>`, encoded))
}

func buildAutorizacionEnvelope(clavesAcceso []string) []byte {
	var claves bytes.Buffer
	for _, k := range clavesAcceso {
		fmt.Fprintf(&claves, "<claveAccesoComprobante>%s</claveAccesoComprobante>", k)
	}
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ec="http://ec.gob.sri.ws.autorizacion">
  <soapenv:Body>
    <ec:autorizacionComprobante>
      %s
    </ec:autorizacionComprobante>
  </soapenv:Body>
</soapenv:Envelope>`, claves.String()))
}

// soapRecepcionEnvelope and soapAutorizacionEnvelope are the minimal
// decode targets for SRI's SOAP responses; field names follow the WSDL's
// own RespuestaSolicitud / RespuestaAutorizacionComprobante shapes.
type soapRecepcionEnvelope struct {
	Body struct {
		Response struct {
			Estado   string   `xml:"estado"`
			Mensajes []string `xml:"comprobantes>comprobante>mensajes>mensaje>mensaje"`
		} `xml:"RespuestaSolicitud"`
	} `xml:"Body"`
}

type soapAutorizacionEnvelope struct {
	Body struct {
		Response struct {
			Autorizaciones []struct {
				ClaveAcceso         string `xml:"claveAccesoConsultada"`
				Estado              string `xml:"estado"`
				NumeroAutorizacion  string `xml:"numeroAutorizacion"`
				FechaAutorizacion   string `xml:"fechaAutorizacion"`
				Comprobante         string `xml:"comprobante"`
			} `xml:"autorizaciones>autorizacion"`
		} `xml:"RespuestaAutorizacionComprobante"`
	} `xml:"Body"`
}

func parseRecepcionResponse(body []byte) (RecepcionResult, error) {
	var env soapRecepcionEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return RecepcionResult{}, newError(KindConnection, true, err, "decoding recepcion response")
	}
	return RecepcionResult{
		Estado:   EstadoComprobante(env.Body.Response.Estado),
		Mensajes: env.Body.Response.Mensajes,
	}, nil
}

func parseAutorizacionResponse(body []byte) ([]AutorizacionResult, error) {
	var env soapAutorizacionEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, newError(KindConnection, true, err, "decoding autorizacion response")
	}
	results := make([]AutorizacionResult, 0, len(env.Body.Response.Autorizaciones))
	for _, a := range env.Body.Response.Autorizaciones {
		fecha, _ := time.Parse("2006-01-02T15:04:05-07:00", a.FechaAutorizacion)
		results = append(results, AutorizacionResult{
			ClaveAcceso:         a.ClaveAcceso,
			Estado:              EstadoComprobante(a.Estado),
			NumeroAutorizacion:  a.NumeroAutorizacion,
			FechaAutorizacion:   fecha,
			ComprobanteXML:      []byte(a.Comprobante),
		})
	}
	return results, nil
}
