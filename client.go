package soapclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ma314smith/signedxml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Client struct {
	url        string
	opts       ClientOpts
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOpts defines the possible options to pass to a client
type ClientOpts struct {
	// Certificate is the tls certificate. When set it is used for mutual TLS and
	// the envelope is signed with WS-Security. Leave empty for plain SOAP.
	Certificate tls.Certificate

	// Username for the UsernameToken as defined in https://www.oasis-open.org/committees/download.php/13392/wss-v1.1-spec-pr-UsernameTokenProfile-01.htm#_Toc104276211
	Username string

	// Password for the UsernameToken as defined in https://www.oasis-open.org/committees/download.php/13392/wss-v1.1-spec-pr-UsernameTokenProfile-01.htm#_Toc104276211
	Password string

	// Debug enables the verbose mode which logs requests and responses. Use it only for development
	Debug bool

	// Namespace sets the default namespace value for the operation
	Namespace string

	// ActionPrefix is prepended to the operation name to build the SOAPAction header
	ActionPrefix string

	// Timeout bounds every HTTP exchange. Zero means no timeout.
	Timeout time.Duration

	// Logger receives debug output. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

func (opts ClientOpts) signing() bool {
	return len(opts.Certificate.Certificate) > 0
}

func (opts ClientOpts) validate() {
	if opts.signing() && opts.Certificate.PrivateKey == nil {
		panic("client Certificate requires a private key")
	}
}

func (opts ClientOpts) getHTTPClient() *http.Client {
	client := &http.Client{Timeout: opts.Timeout}

	if opts.signing() {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				Certificates: []tls.Certificate{
					opts.Certificate,
				},
				MinVersion: tls.VersionTLS12,
			},
		}
	}

	return client
}

func (opts ClientOpts) getCertInfo() (string, string, error) {
	pCert, err := x509.ParseCertificate(opts.Certificate.Certificate[0])
	if err != nil {
		return "", "", errors.Wrap(err, "parsing client certificate")
	}

	return pCert.Issuer.String(), pCert.SerialNumber.String(), nil
}

// New creates a new Client. url is the service endpoint or its WSDL URL.
// This client is supposed to be shared between threads
func New(url string, opts ClientOpts) *Client {
	opts.validate()

	if len(opts.Namespace) == 0 {
		opts.Namespace = "http://tempuri.org/"
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Client{
		url:        endpointOf(url),
		opts:       opts,
		httpClient: opts.getHTTPClient(),
		logger:     logger,
	}
}

// URL returns the endpoint requests are posted to
func (c *Client) URL() string {
	return c.url
}

func endpointOf(url string) string {
	if i := strings.Index(strings.ToLower(url), "?wsdl"); i >= 0 {
		return url[:i]
	}

	return url
}

// buildSecurityHeader builds the WS-Security header for a signed request
func (c *Client) buildSecurityHeader(bodyID string) (*header, error) {
	signInfo := &headerSecuritySignatureSignedInfo{
		CanonicalizationMethod: &algorithm{
			Algorithm: "http://www.w3.org/2001/10/xml-exc-c14n#",
		},
		SignatureMethod: &algorithm{
			Algorithm: "http://www.w3.org/2000/09/xmldsig#rsa-sha1",
		},
		DsReference: &reference{
			URI:         "#" + bodyID,
			DigestValue: "",
			DigestMethod: &algorithm{
				Algorithm: "http://www.w3.org/2000/09/xmldsig#sha1",
			},
			Transforms: &transforms{
				Transform: &algorithm{
					Algorithm: "http://www.w3.org/2001/10/xml-exc-c14n#",
				},
			},
		},
	}

	certIssuerName, certSerialNumber, err := c.opts.getCertInfo()
	if err != nil {
		return nil, err
	}

	security := &headerSecurity{
		Wsse: wsseNS,
		Signature: &headerSecuritySignature{
			ID:             generateID("SIG"),
			Xmlns:          "http://www.w3.org/2000/09/xmldsig#",
			SignatureValue: "",
			SignedInfo:     signInfo,
			KeyInfo: &headerSecuritySignatureKeyInfo{
				ID: generateID("KI"),
				SecurityTokenReference: keyInfoSecurityTokenReference{
					X509Data: x509Data{
						X509IssuerSerial: x509IssuerSerial{
							X509IssuerName:   certIssuerName,
							X509SerialNumber: certSerialNumber,
						},
						X509Certificate: base64.StdEncoding.EncodeToString(c.opts.Certificate.Certificate[0]),
					},
				},
			},
		},
	}

	if c.opts.Username != "" {
		security.UsernameToken = &headerSecurityUsernameToken{
			Username: c.opts.Username,
			Password: &headerSecurityUsernameTokenPassword{
				Type: "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordText",
				Text: c.opts.Password,
			},
		}
	}

	return &header{Security: security}, nil
}

// buildEnvelope builds the envelope for the request
func (c *Client) buildEnvelope(op Operation) (*envelope, error) {
	body := requestBody{Operation: op}

	env := &envelope{
		Soapenv: soapEnvNS,
		Body:    body,
	}

	if !c.opts.signing() {
		return env, nil
	}

	body.ID = generateID("id")
	body.Wsu = wsuNS
	env.Body = body

	h, err := c.buildSecurityHeader(body.ID)
	if err != nil {
		return nil, err
	}
	env.Header = h

	return env, nil
}

// encode marshals the envelope of op and signs it when a certificate is configured
func (c *Client) encode(op Operation) (string, error) {
	env, err := c.buildEnvelope(op)
	if err != nil {
		return "", err
	}

	xmlBytes, err := xml.Marshal(env)
	if err != nil {
		return "", errors.Wrap(err, "encoding envelope")
	}

	if !c.opts.signing() {
		return xml.Header + string(xmlBytes), nil
	}

	// the declaration is prepended after signing, the signer works on the envelope only
	signer, err := signedxml.NewSigner(string(xmlBytes))
	if err != nil {
		return "", errors.Wrap(err, "preparing signer")
	}

	signedXML, err := signer.Sign(c.opts.Certificate.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "signing envelope")
	}

	if op.Validate {
		validator, err := signedxml.NewValidator(signedXML)
		if err != nil {
			return "", errors.Wrap(err, "preparing validator")
		}

		_, err = validator.ValidateReferences()
		if err != nil {
			return "", errors.Wrap(err, "error validating")
		}
	}

	return xml.Header + signedXML, nil
}

func (c *Client) action(op Operation) string {
	if op.Action != "" {
		return op.Action
	}

	if c.opts.ActionPrefix != "" {
		return c.opts.ActionPrefix + op.Name
	}

	return op.Namespace + op.Name
}

// ListOperations lists all supported operations by the service
func (c *Client) ListOperations(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?wsdl", nil)
	if err != nil {
		return nil, err
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching wsdl")
	}

	defer func() { _ = response.Body.Close() }()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	if c.opts.Debug {
		c.logger.Debug().Str("url", c.url).Msgf("RESPONSE: %s", data)
	}

	if response.StatusCode/100 != 2 {
		return nil, &HTTPError{StatusCode: response.StatusCode, Body: data}
	}

	doc := etree.NewDocument()
	err = doc.ReadFromBytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "parsing wsdl")
	}

	// SOAP 1.1 and 1.2 bindings repeat the same operations
	seen := map[string]bool{}
	result := make([]string, 0)
	ops := doc.FindElements("//definitions/binding/operation")
	for _, op := range ops {
		name := op.SelectAttrValue("name", "")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}

	return result, nil
}

// RawQuery does a query and returns the response. A non 2xx status is
// reported as *HTTPError carrying the body.
func (c *Client) RawQuery(ctx context.Context, op Operation) ([]byte, error) {
	if op.Namespace == "" {
		op.Namespace = c.opts.Namespace
	}

	payload, err := c.encode(op)
	if err != nil {
		return nil, err
	}

	if c.opts.Debug {
		c.logger.Debug().Str("operation", op.Name).Msgf("REQUEST: %s", payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+c.action(op)+`"`)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "calling %s", op.Name)
	}

	defer func() { _ = response.Body.Close() }()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	if c.opts.Debug {
		c.logger.Debug().Str("operation", op.Name).Int("status", response.StatusCode).Msgf("RESPONSE: %s", data)
	}

	if response.StatusCode/100 != 2 {
		return data, &HTTPError{StatusCode: response.StatusCode, Body: data}
	}

	return data, nil
}

// Query performs the query and returns a *etree.Document. SOAP faults are
// returned as *Fault.
func (c *Client) Query(ctx context.Context, op Operation) (*etree.Document, error) {
	res, err := c.RawQuery(ctx, op)

	var httpErr *HTTPError
	if err != nil && !errors.As(err, &httpErr) {
		return nil, err
	}

	doc := etree.NewDocument()
	if perr := doc.ReadFromBytes(res); perr != nil {
		if httpErr != nil {
			return nil, httpErr
		}
		return nil, errors.Wrap(perr, "parsing response")
	}

	if fault := faultFrom(doc); fault != nil {
		return nil, fault
	}

	if httpErr != nil {
		return nil, httpErr
	}

	if doc.Root() == nil {
		return nil, errors.New("response is not an XML document")
	}

	return doc, nil
}

var _ ClientIface = &Client{}
