package config

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/lampo-ln/lampo/internal/core/ports"
	chargesvc "github.com/lampo-ln/lampo/internal/infrastructure/charge"
	lndsvc "github.com/lampo-ln/lampo/internal/infrastructure/lnd"
	"github.com/lampo-ln/lampo/pkg/charge"
)

type BackendType int

const (
	ChargeBackend BackendType = iota
	LndBackend
)

type BackendOpts struct {
	Type BackendType

	ChargeURL   string
	ChargeWSURL string
	ChargeToken string

	LndHost         string
	LndTLSCertPath  string
	LndMacaroonPath string
}

type Config struct {
	LogLevel uint32 `mapstructure:"LOG_LEVEL" envDefault:"4" envInfo:"Log verbosity (higher = more verbose)"`

	ChargeURL   string `mapstructure:"CHARGE_URL" envDefault:"" envInfo:"Charge backend HTTP endpoint (e.g., http://charge:9112)"`
	ChargeWSURL string `mapstructure:"CHARGE_WS_URL" envDefault:"" envInfo:"Charge backend WebSocket endpoint (derived from CHARGE_URL if empty)"`
	ChargeToken string `mapstructure:"CHARGE_TOKEN" envDefault:"" envInfo:"Charge backend access token"`

	LndHost         string `mapstructure:"LND_HOST" envDefault:"" envInfo:"LND gRPC endpoint (e.g., lnd:10009)"`
	LndTLSCertPath  string `mapstructure:"LND_TLS_CERT_PATH" envDefault:"" envInfo:"Path to LND TLS certificate (empty disables TLS)"`
	LndMacaroonPath string `mapstructure:"LND_MACAROON_PATH" envDefault:"" envInfo:"Path to LND admin macaroon"`

	backendOpts *BackendOpts
}

func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("LAMPO")
	v.AutomaticEnv()

	if err := setDefaultConfig(v); err != nil {
		return nil, fmt.Errorf("error setting default config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %v", err)
	}

	opts, err := deriveBackendOpts(
		config.ChargeURL, config.ChargeWSURL, config.ChargeToken, config.LndHost,
	)
	if err != nil {
		return nil, fmt.Errorf("error deriving backend config: %w", err)
	}
	if opts != nil {
		opts.LndTLSCertPath = config.LndTLSCertPath
		opts.LndMacaroonPath = config.LndMacaroonPath
	}
	config.backendOpts = opts

	return &config, nil
}

func (c *Config) GetBackendOpts() *BackendOpts {
	return c.backendOpts
}

// NewLightningClient builds the node client for the configured backend.
func (c *Config) NewLightningClient(ctx context.Context) (ports.LightningClient, error) {
	opts := c.backendOpts
	if opts == nil {
		return nil, fmt.Errorf("no lightning backend configured")
	}

	switch opts.Type {
	case ChargeBackend:
		log.Infof("using charge backend at %s", opts.ChargeURL)
		return chargesvc.NewService(&charge.Client{
			URL:   opts.ChargeURL,
			WSURL: opts.ChargeWSURL,
			Token: opts.ChargeToken,
		}), nil
	case LndBackend:
		return lndsvc.NewService(ctx, opts.LndHost, opts.LndTLSCertPath, opts.LndMacaroonPath)
	default:
		return nil, fmt.Errorf("unknown backend type %d", opts.Type)
	}
}

func deriveBackendOpts(chargeURL, chargeWSURL, chargeToken, lndHost string) (*BackendOpts, error) {
	if chargeURL == "" && lndHost == "" {
		return nil, nil
	}

	if chargeURL != "" && lndHost != "" {
		return nil, fmt.Errorf("cannot set both charge and LND backends at the same time")
	}

	if lndHost != "" {
		return &BackendOpts{Type: LndBackend, LndHost: lndHost}, nil
	}

	if chargeToken == "" {
		return nil, fmt.Errorf("charge URL provided without access token")
	}

	parsed, err := url.Parse(chargeURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid charge URL %q", chargeURL)
	}

	if chargeWSURL == "" {
		switch parsed.Scheme {
		case "http":
			chargeWSURL = "ws://" + parsed.Host
		case "https":
			chargeWSURL = "wss://" + parsed.Host
		default:
			return nil, fmt.Errorf("invalid charge URL scheme %q", parsed.Scheme)
		}
	}

	return &BackendOpts{
		Type:        ChargeBackend,
		ChargeURL:   strings.TrimSuffix(chargeURL, "/"),
		ChargeWSURL: strings.TrimSuffix(chargeWSURL, "/"),
		ChargeToken: chargeToken,
	}, nil
}

func setDefaultConfig(v *viper.Viper) error {
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		key := f.Tag.Get("mapstructure")
		def := f.Tag.Get("envDefault")
		if def != "" {
			v.SetDefault(key, def)
		}
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("error binding env variable for key %s: %w", key, err)
		}
	}
	return nil
}
