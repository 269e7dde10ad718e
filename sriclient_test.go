package sri_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	sri "github.com/repuestocontrol/sriinvoice"
)

func testSOAPConfig(url string) sri.SOAPConfig {
	return sri.SOAPConfig{
		RecepcionURL:    url,
		AutorizacionURL: url,
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		RetryBaseDelay:  10 * time.Millisecond,
	}
}

func TestSRIClient_EnviarComprobante_ParsesRecibida(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <RespuestaSolicitud>
      <estado>RECIBIDA</estado>
    </RespuestaSolicitud>
  </soapenv:Body>
</soapenv:Envelope>`))
	}))
	defer srv.Close()

	client := sri.NewSRIClient(testSOAPConfig(srv.URL), zerolog.Nop())
	result, err := client.EnviarComprobante(context.Background(), []byte("<factura/>"))
	if err != nil {
		t.Fatalf("EnviarComprobante: %v", err)
	}
	if result.Estado != sri.EstadoRecibida {
		t.Errorf("expected EstadoRecibida, got %q", result.Estado)
	}
}

func TestSRIClient_EnviarComprobante_ParsesDevueltaWithMessages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <RespuestaSolicitud>
      <estado>DEVUELTA</estado>
      <comprobantes>
        <comprobante>
          <mensajes>
            <mensaje>
              <mensaje>campo ruc invalido</mensaje>
            </mensaje>
          </mensajes>
        </comprobante>
      </comprobantes>
    </RespuestaSolicitud>
  </soapenv:Body>
</soapenv:Envelope>`))
	}))
	defer srv.Close()

	client := sri.NewSRIClient(testSOAPConfig(srv.URL), zerolog.Nop())
	result, err := client.EnviarComprobante(context.Background(), []byte("<factura/>"))
	if err != nil {
		t.Fatalf("EnviarComprobante: %v", err)
	}
	if result.Estado != sri.EstadoDevuelta {
		t.Errorf("expected EstadoDevuelta, got %q", result.Estado)
	}
	if len(result.Mensajes) != 1 || result.Mensajes[0] != "campo ruc invalido" {
		t.Errorf("expected one rejection message, got %v", result.Mensajes)
	}
}

func TestSRIClient_AutorizacionComprobante_ParsesAutorizada(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <RespuestaAutorizacionComprobante>
      <autorizaciones>
        <autorizacion>
          <claveAccesoConsultada>` + sampleDocument().ClaveAcceso + `</claveAccesoConsultada>
          <estado>AUTORIZADO</estado>
          <numeroAutorizacion>1234567890</numeroAutorizacion>
          <fechaAutorizacion>2026-07-29T10:00:00-05:00</fechaAutorizacion>
        </autorizacion>
      </autorizaciones>
    </RespuestaAutorizacionComprobante>
  </soapenv:Body>
</soapenv:Envelope>`))
	}))
	defer srv.Close()

	client := sri.NewSRIClient(testSOAPConfig(srv.URL), zerolog.Nop())
	result, err := client.AutorizacionComprobante(context.Background(), sampleDocument().ClaveAcceso)
	if err != nil {
		t.Fatalf("AutorizacionComprobante: %v", err)
	}
	if result.Estado != sri.EstadoAutorizada {
		t.Errorf("expected EstadoAutorizada, got %q", result.Estado)
	}
	if result.NumeroAutorizacion != "1234567890" {
		t.Errorf("expected numeroAutorizacion to be parsed, got %q", result.NumeroAutorizacion)
	}
}

func TestSRIClient_AutorizacionComprobante_NoEntryIsNotAuthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <RespuestaAutorizacionComprobante>
      <autorizaciones></autorizaciones>
    </RespuestaAutorizacionComprobante>
  </soapenv:Body>
</soapenv:Envelope>`))
	}))
	defer srv.Close()

	client := sri.NewSRIClient(testSOAPConfig(srv.URL), zerolog.Nop())
	_, err := client.AutorizacionComprobante(context.Background(), "nonexistent")
	if !sri.IsKind(err, sri.KindNotAuthorized) {
		t.Errorf("expected KindNotAuthorized, got %v", err)
	}
}

func TestSRIClient_ServerErrorIsRetryableConnectionError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := sri.NewSRIClient(testSOAPConfig(srv.URL), zerolog.Nop())
	_, err := client.EnviarComprobante(context.Background(), []byte("<factura/>"))
	if !sri.IsKind(err, sri.KindConnection) {
		t.Errorf("expected KindConnection, got %v", err)
	}
}
