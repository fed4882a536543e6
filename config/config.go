package config

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/Netflix/go-env"
)

type Certificate struct {
	Raw *x509.Certificate
}

func (c *Certificate) UnmarshalEnvironmentValue(data string) error {
	decodedData, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("could not decode base64-encoded certificate: %w", err)
	}

	caCertBlock, _ := pem.Decode(decodedData)
	if caCertBlock == nil {
		return fmt.Errorf("CA certificate is invalid")
	}

	caCert, err := x509.ParseCertificate(caCertBlock.Bytes)
	if err != nil {
		return fmt.Errorf("could not parse CA cert: %w", err)
	}

	c.Raw = caCert

	return nil
}

type Config struct {
	ListenAddress string       `env:"LISTEN_ADDRESS,default=0.0.0.0:8080"`
	SQLiteDirPath string       `env:"SQLITE_DIR_PATH,default=db"`
	PgDatabaseUrl string       `env:"DATABASE_URL"`
	CACert        *Certificate `env:"CA_CERT"`
	FeedPageCap   int          `env:"FEED_PAGE_CAP,default=1000"`
}

func NewConfig() (*Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
