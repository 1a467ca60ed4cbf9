package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// Transport builds the producer transport with optional TLS and SASL.
func (c *Config) Transport() (*kafkago.Transport, error) {
	t := &kafkago.Transport{
		ClientID:    c.ClientID,
		DialTimeout: ParseDuration(c.DialTimeout),
		IdleTimeout: ParseDuration(c.IdleTimeout),
		MetadataTTL: ParseDuration(c.MetadataTTL),
	}
	var err error
	if t.TLS, err = c.tlsConfig(); err != nil {
		return nil, err
	}
	if t.SASL, err = c.saslMechanism(); err != nil {
		return nil, err
	}
	return t, nil
}

// Dialer builds the consumer dialer with optional TLS and SASL.
func (c *Config) Dialer() (*kafkago.Dialer, error) {
	d := &kafkago.Dialer{
		ClientID:  c.ClientID,
		Timeout:   ParseDuration(c.DialTimeout),
		DualStack: true,
	}
	var err error
	if d.TLS, err = c.tlsConfig(); err != nil {
		return nil, err
	}
	if d.SASLMechanism, err = c.saslMechanism(); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *Config) tlsConfig() (*tls.Config, error) {
	if !c.EnableTLS {
		return nil, nil
	}
	tc := &tls.Config{
		InsecureSkipVerify: c.TLSSkipVerify, //nolint:gosec // opt-in for test clusters
		MinVersion:         tls.VersionTLS12,
	}
	if c.TLSCAFile != "" {
		pem, err := os.ReadFile(c.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("kafka tls: read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("kafka tls: no certificate in %s", c.TLSCAFile)
		}
		tc.RootCAs = pool
	}
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("kafka tls: load client cert: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

func (c *Config) saslMechanism() (sasl.Mechanism, error) {
	if !c.EnableSASL {
		return nil, nil
	}
	switch c.SASLMechanism {
	case "PLAIN":
		return plain.Mechanism{Username: c.Username, Password: c.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, c.Username, c.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, c.Username, c.Password)
	default:
		return nil, fmt.Errorf("kafka sasl: unsupported mechanism %q", c.SASLMechanism)
	}
}

// CompressionCodec maps the configured name to a kafka-go codec. Unknown
// names fall back to snappy.
func (c *Config) CompressionCodec() kafkago.Compression {
	switch c.Compression {
	case "gzip":
		return kafkago.Gzip
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	case "none":
		return 0
	default:
		return kafkago.Snappy
	}
}

// StartOffsetValue maps the configured start offset to kafka-go's constant.
func (c *Config) StartOffsetValue() int64 {
	if c.StartOffset == "first" {
		return kafkago.FirstOffset
	}
	return kafkago.LastOffset
}
