// Package scmd prepares and runs the operations of the CMD signature service
// (version 1.6 of the service specification):
//
//	GetCertificate(applicationId: base64Binary, userId: string) -> string
//	CCMovelSign(request: SignRequest) -> SignStatus
//	CCMovelMultipleSign(request: MultipleSignRequest, documents: ArrayOfHashStructure) -> SignStatus
//	ValidateOtp(code: string, processId: string, applicationId: base64Binary) -> SignResponse
package scmd

import (
	"context"
	"crypto/sha256"

	soapclient "github.com/dcu/scmd-soapclient"
)

const (
	// ServiceNamespace qualifies operations and their parameters
	ServiceNamespace = "http://Ama.Authentication.Service/"
	// DataContractNamespace qualifies the members of the request structures
	DataContractNamespace = "http://schemas.datacontract.org/2004/07/Ama.Structures.CCMovelSignature"
	// ActionPrefix builds the SOAPAction of every operation
	ActionPrefix = ServiceNamespace + "CCMovelSignature/"

	dcPrefix = "a"

	// DefaultDocName is sent by CCMovelSign when no document name is given
	DefaultDocName = "docname teste"
)

// sample plaintexts whose digests stand in for real documents
var (
	samplePlaintext  = []byte("Nobody inspects the spammish repetition")
	samplePlaintext2 = []byte("Always inspect the spammish repetition")
)

// NewClient returns a SOAP client bound to the CMD service at url (endpoint
// or WSDL URL).
func NewClient(url string, opts soapclient.ClientOpts) *soapclient.Client {
	opts.Namespace = ServiceNamespace
	opts.ActionPrefix = ActionPrefix

	return soapclient.New(url, opts)
}

// DefaultHash is the digest CCMovelSign starts from when no hash is given
func DefaultHash() []byte {
	sum := sha256.Sum256(samplePlaintext)
	return sum[:]
}

// DefaultDocuments is the fixed document list of CCMovelMultipleSign
func DefaultDocuments() []HashStructure {
	first := sha256.Sum256(samplePlaintext)
	second := sha256.Sum256(samplePlaintext2)

	return []HashStructure{
		{Hash: first[:], Name: "docname teste1", ID: "1234"},
		{Hash: second[:], Name: "docname teste2", ID: "1235"},
	}
}

func dc(name string) string {
	return dcPrefix + ":" + name
}

func operation(name string, params ...soapclient.Param) soapclient.Operation {
	return soapclient.Operation{
		Name:       name,
		Namespace:  ServiceNamespace,
		Namespaces: map[string]string{dcPrefix: DataContractNamespace},
		Params:     params,
	}
}

// GetCertificateOperation builds the GetCertificate request
func GetCertificateOperation(args Args) soapclient.Operation {
	return operation("GetCertificate",
		soapclient.Param{Name: "applicationId", Value: []byte(args.ApplicationID)},
		soapclient.Param{Name: "userId", Value: args.User},
	)
}

// CCMovelSignOperation builds the CCMovelSign request.
//
// The hash taken from args (or DefaultHash) is hashed again with SHA-256
// before it is sent. Whether the service expects this second digest is not
// established; the behavior is kept as observed against preprod.
func CCMovelSignOperation(args Args) soapclient.Operation {
	docName := args.DocName
	if docName == "" {
		docName = DefaultDocName
	}

	hash := args.Hash
	if len(hash) == 0 {
		hash = DefaultHash()
	}
	sent := sha256.Sum256(hash)

	return operation("CCMovelSign",
		soapclient.Param{Name: "request", Value: map[string]interface{}{
			dc("ApplicationId"): []byte(args.ApplicationID),
			dc("DocName"):       docName,
			dc("Hash"):          sent[:],
			dc("Pin"):           args.Pin,
			dc("UserId"):        args.User,
		}},
	)
}

// CCMovelMultipleSignOperation builds the CCMovelMultipleSign request
func CCMovelMultipleSignOperation(args Args) soapclient.Operation {
	docs := args.Documents
	if len(docs) == 0 {
		docs = DefaultDocuments()
	}

	structures := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		structures = append(structures, map[string]interface{}{
			dc("Hash"): d.Hash,
			dc("Name"): d.Name,
			dc("id"):   d.ID,
		})
	}

	return operation("CCMovelMultipleSign",
		soapclient.Param{Name: "request", Value: map[string]interface{}{
			dc("ApplicationId"): []byte(args.ApplicationID),
			dc("Pin"):           args.Pin,
			dc("UserId"):        args.User,
		}},
		soapclient.Param{Name: "documents", Value: map[string]interface{}{
			dc("HashStructure"): structures,
		}},
	)
}

// ValidateOtpOperation builds the ValidateOtp request
func ValidateOtpOperation(args Args) soapclient.Operation {
	return operation("ValidateOtp",
		soapclient.Param{Name: "code", Value: args.OTP},
		soapclient.Param{Name: "processId", Value: args.ProcessID},
		soapclient.Param{Name: "applicationId", Value: []byte(args.ApplicationID)},
	)
}

// GetCertificate returns the user certificate and its certification chain
func GetCertificate(ctx context.Context, client soapclient.ClientIface, args Args) (string, error) {
	doc, err := client.Query(ctx, GetCertificateOperation(args))
	if err != nil {
		return "", err
	}

	el, err := resultOf(doc, "GetCertificate")
	if err != nil {
		return "", err
	}

	return el.Text(), nil
}

// CCMovelSign starts the signature of one document. The returned ProcessID
// is needed by ValidateOtp.
func CCMovelSign(ctx context.Context, client soapclient.ClientIface, args Args) (*SignStatus, error) {
	doc, err := client.Query(ctx, CCMovelSignOperation(args))
	if err != nil {
		return nil, err
	}

	el, err := resultOf(doc, "CCMovelSign")
	if err != nil {
		return nil, err
	}

	status := decodeSignStatus(el)
	return &status, nil
}

// CCMovelMultipleSign starts the signature of several documents
func CCMovelMultipleSign(ctx context.Context, client soapclient.ClientIface, args Args) (*SignStatus, error) {
	doc, err := client.Query(ctx, CCMovelMultipleSignOperation(args))
	if err != nil {
		return nil, err
	}

	el, err := resultOf(doc, "CCMovelMultipleSign")
	if err != nil {
		return nil, err
	}

	status := decodeSignStatus(el)
	return &status, nil
}

// ValidateOtp confirms a signature process with the OTP sent to the user
func ValidateOtp(ctx context.Context, client soapclient.ClientIface, args Args) (*SignResponse, error) {
	doc, err := client.Query(ctx, ValidateOtpOperation(args))
	if err != nil {
		return nil, err
	}

	el, err := resultOf(doc, "ValidateOtp")
	if err != nil {
		return nil, err
	}

	return decodeSignResponse(el)
}
