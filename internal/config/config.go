package config

import (
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"os"
	"strings"
	"time"

	"github.com/dcu/scmd-soapclient/scmd"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment selects the CMD service the client talks to
type Environment string

const (
	Preprod Environment = "preprod"
	Prod    Environment = "prod"

	// PendingWSDL marks an environment whose WSDL is not published yet
	PendingWSDL = "TBD"

	PreprodWSDL = "https://preprod.cmd.autenticacao.gov.pt/Ama.Authentication.Frontend/CCMovelDigitalSignature.svc?wsdl"

	EnvApplicationID = "CMD_APPLICATION_ID"
	EnvEnvironment   = "CMD_ENV"
	EnvConfigPath    = "CMD_CONFIG"
)

var (
	ErrMissingApplicationID = errors.New("application id is not configured")
	ErrNoValidWSDL          = errors.New("no valid WSDL")
	ErrIncompleteKeyPair    = errors.New("client_certificate and client_key must be set together")
)

// ParseEnvironment accepts the environment names and their numeric forms (0 preprod, 1 prod)
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", string(Preprod):
		return Preprod, nil
	case "1", string(Prod):
		return Prod, nil
	default:
		return "", errors.Errorf("unknown environment %q", s)
	}
}

// Document is a YAML entry of the multiple signature document list. Hash is
// the hex digest; when empty the SHA-256 of Text is used.
type Document struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
	Hash string `yaml:"hash"`
	Text string `yaml:"text"`
}

type fileConfig struct {
	ApplicationID string            `yaml:"application_id"`
	Env           string            `yaml:"env"`
	WSDL          map[string]string `yaml:"wsdl"`
	Timeout       string            `yaml:"timeout"`
	LogLevel      string            `yaml:"log_level"`
	Documents     []Document        `yaml:"documents"`

	ClientCertificate string `yaml:"client_certificate"`
	ClientKey         string `yaml:"client_key"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
}

// Config is the loaded configuration handed to the dispatcher
type Config struct {
	ApplicationID string
	Env           Environment
	WSDL          map[Environment]string
	Timeout       time.Duration
	LogLevel      string
	Documents     []scmd.HashStructure

	// Certificate signs requests with WS-Security when loaded from
	// client_certificate and client_key. Empty means plain SOAP.
	Certificate tls.Certificate
	Username    string
	Password    string
}

// Default returns the configuration used when nothing else is given
func Default() *Config {
	return &Config{
		Env: Preprod,
		WSDL: map[Environment]string{
			Preprod: PreprodWSDL,
			Prod:    PendingWSDL,
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path, when path is not empty, over the defaults
// and then applies the CMD_* environment variables found through lookup.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}

		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}

		if err := cfg.merge(fc); err != nil {
			return nil, errors.Wrap(err, "invalid configuration")
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, ok := lookup(EnvApplicationID); ok {
		cfg.ApplicationID = v
	}

	if v, ok := lookup(EnvEnvironment); ok && v != "" {
		env, err := ParseEnvironment(v)
		if err != nil {
			return nil, errors.Wrap(err, EnvEnvironment)
		}
		cfg.Env = env
	}

	return cfg, nil
}

func (c *Config) merge(fc fileConfig) error {
	c.ApplicationID = fc.ApplicationID

	if fc.Env != "" {
		env, err := ParseEnvironment(fc.Env)
		if err != nil {
			return err
		}
		c.Env = env
	}

	for name, url := range fc.WSDL {
		env, err := ParseEnvironment(name)
		if err != nil {
			return errors.Wrap(err, "wsdl")
		}
		c.WSDL[env] = url
	}

	if fc.Timeout != "" {
		timeout, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return errors.Wrap(err, "invalid timeout")
		}
		c.Timeout = timeout
	}

	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}

	if fc.ClientCertificate != "" || fc.ClientKey != "" {
		if fc.ClientCertificate == "" || fc.ClientKey == "" {
			return ErrIncompleteKeyPair
		}

		cert, err := tls.LoadX509KeyPair(fc.ClientCertificate, fc.ClientKey)
		if err != nil {
			return errors.Wrap(err, "loading client certificate")
		}
		c.Certificate = cert
	}

	c.Username = fc.Username
	c.Password = fc.Password

	for i, d := range fc.Documents {
		doc, err := d.hashStructure()
		if err != nil {
			return errors.Wrapf(err, "document %d", i)
		}
		c.Documents = append(c.Documents, doc)
	}

	return nil
}

func (d Document) hashStructure() (scmd.HashStructure, error) {
	if d.Hash == "" {
		sum := sha256.Sum256([]byte(d.Text))
		return scmd.HashStructure{Hash: sum[:], Name: d.Name, ID: d.ID}, nil
	}

	hash, err := hex.DecodeString(d.Hash)
	if err != nil {
		return scmd.HashStructure{}, errors.Wrap(err, "invalid hash")
	}

	return scmd.HashStructure{Hash: hash, Name: d.Name, ID: d.ID}, nil
}

// WSDLURL returns the WSDL of the selected environment
func (c *Config) WSDLURL() (string, error) {
	url, ok := c.WSDL[c.Env]
	if !ok || url == "" || url == PendingWSDL {
		return "", errors.Wrapf(ErrNoValidWSDL, "environment %s", c.Env)
	}

	return url, nil
}

// Validate checks the settings every remote call needs
func (c *Config) Validate() error {
	if c.ApplicationID == "" {
		return ErrMissingApplicationID
	}

	if _, err := c.WSDLURL(); err != nil {
		return err
	}

	return nil
}
