package sri

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// SOAPConfig carries the SRI web service endpoints and transport tuning.
// Grounded on sri_ws.py's class constants (WSDL_RECEPCION_PRUEBAS, etc.).
type SOAPConfig struct {
	RecepcionURL    string
	AutorizacionURL string
	Timeout         time.Duration
	MaxRetries      int
	RetryBaseDelay  time.Duration
}

// SMTPConfig mirrors email_comprobantes.py's ConfiguracionEmail.get_config.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	UseSSL   bool
	From     string
	Timeout  time.Duration
}

// Config is the root configuration object for an embedding application.
// Values are read from environment variables (prefixed SRI_) and/or a
// config file via viper, the way jhoicas-Inventario-api wires its own
// settings.
type Config struct {
	Emitter EmitterConfig
	SOAP    SOAPConfig
	SMTP    SMTPConfig
}

func defaultSOAPConfig(ambiente Ambiente) SOAPConfig {
	cfg := SOAPConfig{
		Timeout:        60 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 2 * time.Second,
	}
	if ambiente == AmbienteProduccion {
		cfg.RecepcionURL = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline?wsdl"
		cfg.AutorizacionURL = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline?wsdl"
		return cfg
	}
	cfg.RecepcionURL = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline?wsdl"
	cfg.AutorizacionURL = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline?wsdl"
	return cfg
}

// LoadConfig reads configuration from the environment using viper,
// falling back to the SRI test-environment endpoints the way sri_ws.py
// defaults to AmbienteSRI.PRUEBAS when unset.
func LoadConfig(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix("SRI")
	v.AutomaticEnv()

	v.SetDefault("AMBIENTE", string(AmbientePruebas))
	v.SetDefault("TIPO_EMISION", "1")
	v.SetDefault("EMAIL_HOST", "smtp.gmail.com")
	v.SetDefault("EMAIL_PORT", 587)
	v.SetDefault("EMAIL_USE_TLS", true)
	v.SetDefault("EMAIL_USE_SSL", false)
	v.SetDefault("EMAIL_TIMEOUT", 30)

	ambiente := Ambiente(v.GetString("AMBIENTE"))
	if ambiente != AmbientePruebas && ambiente != AmbienteProduccion {
		return Config{}, fmt.Errorf("sri: invalid SRI_AMBIENTE %q", ambiente)
	}

	emitter := EmitterConfig{
		RUC:                   v.GetString("RUC"),
		RazonSocial:           v.GetString("RAZON_SOCIAL"),
		NombreComercial:       v.GetString("NOMBRE_COMERCIAL"),
		DirMatriz:             v.GetString("DIR_MATRIZ"),
		Establecimiento:       v.GetString("ESTABLECIMIENTO"),
		PuntoEmision:          v.GetString("PUNTO_EMISION"),
		DirEstablecimiento:    v.GetString("DIR_ESTABLECIMIENTO"),
		ContribuyenteEspecial: v.GetString("CONTRIBUYENTE_ESPECIAL"),
		ObligadoContabilidad:  v.GetBool("OBLIGADO_CONTABILIDAD"),
		Ambiente:              ambiente,
		TipoEmision:           v.GetString("TIPO_EMISION"),
		CertificatePath:       v.GetString("CERT_PATH"),
		CertificatePassword:   v.GetString("CERT_PASSWORD"),
	}

	smtp := SMTPConfig{
		Host:     v.GetString("EMAIL_HOST"),
		Port:     v.GetInt("EMAIL_PORT"),
		Username: v.GetString("EMAIL_HOST_USER"),
		Password: v.GetString("EMAIL_HOST_PASSWORD"),
		UseTLS:   v.GetBool("EMAIL_USE_TLS"),
		UseSSL:   v.GetBool("EMAIL_USE_SSL"),
		From:     v.GetString("EMAIL_DEFAULT_FROM"),
		Timeout:  time.Duration(v.GetInt("EMAIL_TIMEOUT")) * time.Second,
	}
	if smtp.From == "" {
		smtp.From = smtp.Username
	}

	return Config{
		Emitter: emitter,
		SOAP:    defaultSOAPConfig(ambiente),
		SMTP:    smtp,
	}, nil
}
