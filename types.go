package soapclient

import (
	"encoding/base64"
	"encoding/xml"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	soapEnvNS = "http://schemas.xmlsoap.org/soap/envelope/"
	wsuNS     = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"
	wsseNS    = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"

	// operationPrefix is the prefix bound to Operation.Namespace
	operationPrefix = "v1"
)

type envelope struct {
	XMLName xml.Name    `xml:"soap-env:Envelope"`
	Soapenv string      `xml:"xmlns:soap-env,attr"`
	Header  *header     `xml:"soap-env:Header,omitempty"`
	Body    interface{} `xml:"soap-env:Body"`
}

type header struct {
	XMLName  xml.Name        `xml:"soap-env:Header"`
	Security *headerSecurity `xml:"wsse:Security"`
}

type headerSecurity struct {
	XMLName xml.Name `xml:"wsse:Security"`
	Wsse    string   `xml:"xmlns:wsse,attr"`

	Signature     *headerSecuritySignature     `xml:"Signature"`
	UsernameToken *headerSecurityUsernameToken `xml:"wsse:UsernameToken,omitempty"`
}

type headerSecurityUsernameToken struct {
	Username string                               `xml:"wsse:Username"`
	Password *headerSecurityUsernameTokenPassword `xml:"wsse:Password"`
}

type headerSecurityUsernameTokenPassword struct {
	Text string `xml:",chardata"`
	Type string `xml:"Type,attr"`
}

type headerSecuritySignature struct {
	ID             string                             `xml:"Id,attr"`
	Xmlns          string                             `xml:"xmlns,attr"`
	SignedInfo     *headerSecuritySignatureSignedInfo `xml:"SignedInfo"`
	SignatureValue string                             `xml:"SignatureValue"`
	KeyInfo        *headerSecuritySignatureKeyInfo    `xml:"KeyInfo"`
}

type headerSecuritySignatureSignedInfo struct {
	CanonicalizationMethod *algorithm `xml:"CanonicalizationMethod"`
	SignatureMethod        *algorithm `xml:"SignatureMethod"`
	DsReference            *reference `xml:"Reference"`
}

// algorithm covers CanonicalizationMethod, SignatureMethod, DigestMethod and Transform
type algorithm struct {
	Algorithm string `xml:"Algorithm,attr"`
}

type reference struct {
	URI          string      `xml:"URI,attr"`
	Transforms   *transforms `xml:"Transforms"`
	DigestMethod *algorithm  `xml:"DigestMethod"`
	DigestValue  string      `xml:"DigestValue"`
}

type transforms struct {
	Transform *algorithm `xml:"Transform"`
}

type headerSecuritySignatureKeyInfo struct {
	ID                     string                        `xml:"Id,attr"`
	SecurityTokenReference keyInfoSecurityTokenReference `xml:"wsse:SecurityTokenReference"`
}

type keyInfoSecurityTokenReference struct {
	X509Data x509Data `xml:"X509Data"`
}

type x509Data struct {
	X509IssuerSerial x509IssuerSerial `xml:"X509IssuerSerial"`
	X509Certificate  string           `xml:"X509Certificate"`
}

type x509IssuerSerial struct {
	X509IssuerName   string `xml:"X509IssuerName"`
	X509SerialNumber string `xml:"X509SerialNumber"`
}

type requestBody struct {
	XMLName   xml.Name `xml:"soap-env:Body"`
	ID        string   `xml:"ns1:ID,attr,omitempty"`
	Wsu       string   `xml:"xmlns:ns1,attr,omitempty"`
	Operation Operation
}

// Param is a single named value of an ordered element list
type Param struct {
	Name  string
	Value interface{}
}

// Operation defines an operation for the SOAP service
type Operation struct {
	// Name is the name of the operation. It is mandatory.
	Name string
	// Namespace is bound to the operation element and to every unprefixed key.
	// The client namespace is used when empty.
	Namespace string
	// Action overrides the SOAPAction header
	Action string
	// Namespaces declares extra prefixes usable in keys as "prefix:Name"
	Namespaces map[string]string
	// Params is the ordered body of the request. It takes precedence over Data.
	Params []Param
	// Data receives the data/body of the request for the operation when the
	// element order does not matter. Keys are emitted sorted by local name.
	Data map[string]interface{}
	// Validate runs a validation of the signature before sending the request. Use it only for development
	Validate bool
}

// qualify prefixes a key with the operation prefix unless it already has one
func qualify(key string) string {
	if strings.Contains(key, ":") {
		return key
	}

	return operationPrefix + ":" + key
}

func localName(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}

	return key
}

// sortedParams turns a map into params ordered by local name, the order WCF
// data contracts expect
func sortedParams(m map[string]interface{}) []Param {
	params := make([]Param, 0, len(m))
	for k, v := range m {
		params = append(params, Param{Name: k, Value: v})
	}

	sort.SliceStable(params, func(i, j int) bool {
		return localName(params[i].Name) < localName(params[j].Name)
	})

	return params
}

func elementTokens(key string, value interface{}) ([]xml.Token, error) {
	switch v := value.(type) {
	case []map[string]interface{}:
		tokens := []xml.Token{}
		for _, item := range v {
			t, err := elementTokens(key, item)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, t...)
		}

		return tokens, nil
	case []interface{}:
		tokens := []xml.Token{}
		for _, item := range v {
			t, err := elementTokens(key, item)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, t...)
		}

		return tokens, nil
	}

	start := xml.StartElement{Name: xml.Name{Local: qualify(key)}}

	inner, err := xmlTokensFor(value)
	if err != nil {
		return nil, errors.Wrapf(err, "element %s", key)
	}

	tokens := []xml.Token{start}
	tokens = append(tokens, inner...)
	tokens = append(tokens, xml.EndElement{Name: start.Name})

	return tokens, nil
}

func paramTokens(params []Param) ([]xml.Token, error) {
	tokens := []xml.Token{}
	for _, p := range params {
		t, err := elementTokens(p.Name, p.Value)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t...)
	}

	return tokens, nil
}

func xmlTokensFor(i interface{}) ([]xml.Token, error) {
	switch v := i.(type) {
	case nil:
		return nil, nil
	case string:
		return []xml.Token{xml.CharData(v)}, nil
	case []byte:
		return []xml.Token{xml.CharData(base64.StdEncoding.EncodeToString(v))}, nil
	case map[string]interface{}:
		return paramTokens(sortedParams(v))
	case []Param:
		return paramTokens(v)
	default:
		return nil, errors.Errorf("type %T not supported", i)
	}
}

// MarshalXML marshals the Operation in XML. Params keep their order; the keys of
// the operation Data and of nested maps are sorted alphabetically by local name.
func (op Operation) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: qualify(op.Name)}
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xmlns:" + operationPrefix}, Value: op.Namespace})

	prefixes := make([]string, 0, len(op.Namespaces))
	for p := range op.Namespaces {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	for _, p := range prefixes {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xmlns:" + p}, Value: op.Namespaces[p]})
	}

	params := op.Params
	if params == nil {
		params = sortedParams(op.Data)
	}

	body, err := paramTokens(params)
	if err != nil {
		return errors.Wrapf(err, "operation %s", op.Name)
	}

	tokens := []xml.Token{start}
	tokens = append(tokens, body...)
	tokens = append(tokens, xml.EndElement{Name: start.Name})

	for _, t := range tokens {
		err := e.EncodeToken(t)
		if err != nil {
			return err
		}
	}

	return e.Flush()
}
