package soapclient

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/xml"
	"math/big"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSignedCertificate(t *testing.T) tls.Certificate {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(4242),
		Subject:      pkix.Name{CommonName: "scmd test client"},
		Issuer:       pkix.Name{CommonName: "scmd test client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func tlsCertificateWithoutKey() tls.Certificate {
	return tls.Certificate{Certificate: [][]byte{{0x30}}}
}

func TestBuildEnvelope_Unsigned(t *testing.T) {
	c := New("https://example.org", ClientOpts{Namespace: "urn:test"})

	env, err := c.buildEnvelope(Operation{Name: "Echo", Namespace: "urn:test"})
	require.NoError(t, err)
	assert.Nil(t, env.Header)

	body, ok := env.Body.(requestBody)
	require.True(t, ok)
	assert.Empty(t, body.ID)
}

func TestBuildEnvelope_SignedHeader(t *testing.T) {
	c := New("https://example.org", ClientOpts{
		Certificate: selfSignedCertificate(t),
		Username:    "operator",
		Password:    "secret",
		Namespace:   "urn:test",
	})

	env, err := c.buildEnvelope(Operation{Name: "Echo", Namespace: "urn:test"})
	require.NoError(t, err)
	require.NotNil(t, env.Header)

	body, ok := env.Body.(requestBody)
	require.True(t, ok)
	assert.Regexp(t, `^id-[0-9a-f]{32}$`, body.ID)
	assert.Equal(t, "#"+body.ID, env.Header.Security.Signature.SignedInfo.DsReference.URI)

	data, err := xml.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<wsse:Username>operator</wsse:Username>")
	assert.Contains(t, string(data), "<X509SerialNumber>4242</X509SerialNumber>")
	assert.Contains(t, string(data), `xmlns:ns1="`+wsuNS+`"`)
}

func TestBuildEnvelope_NoUsernameToken(t *testing.T) {
	c := New("https://example.org", ClientOpts{Certificate: selfSignedCertificate(t)})

	env, err := c.buildEnvelope(Operation{Name: "Echo"})
	require.NoError(t, err)
	assert.Nil(t, env.Header.Security.UsernameToken)
}

func TestRawQuery_SignedEnvelope(t *testing.T) {
	server, captured := newServer(t, http.StatusOK, okResponse)

	c := New(server.URL, ClientOpts{
		Certificate: selfSignedCertificate(t),
		Namespace:   "urn:test",
	})
	_, err := c.RawQuery(context.Background(), Operation{
		Name:     "Echo",
		Params:   []Param{{Name: "message", Value: "ping"}},
		Validate: true,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(captured.body, xml.Header))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(captured.body))

	body := doc.FindElement("//Envelope/Body")
	require.NotNil(t, body)
	bodyID := body.SelectAttrValue("ns1:ID", "")
	require.NotEmpty(t, bodyID)

	reference := doc.FindElement("//Envelope/Header/Security/Signature/SignedInfo/Reference")
	require.NotNil(t, reference)
	assert.Equal(t, "#"+bodyID, reference.SelectAttrValue("URI", ""))

	digest := reference.FindElement("DigestValue")
	require.NotNil(t, digest)
	assert.NotEmpty(t, strings.TrimSpace(digest.Text()))

	signature := doc.FindElement("//Envelope/Header/Security/Signature/SignatureValue")
	require.NotNil(t, signature)
	assert.NotEmpty(t, strings.TrimSpace(signature.Text()))

	assert.NotNil(t, body.FindElement("Echo/message"))
}
