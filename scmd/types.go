package scmd

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Args holds the user supplied values of one invocation. Fields not used by
// an operation are ignored by it.
type Args struct {
	ApplicationID string
	User          string
	Pin           string

	// DocName and Hash feed CCMovelSign. Defaults apply when empty.
	DocName string
	Hash    []byte

	// Documents feeds CCMovelMultipleSign. DefaultDocuments applies when empty.
	Documents []HashStructure

	OTP       string
	ProcessID string
}

// HashStructure is one document of a multiple signature request, and one
// signed document echo of a SignResponse.
type HashStructure struct {
	Hash []byte
	Name string
	ID   string
}

func (h HashStructure) String() string {
	return fmt.Sprintf("{Hash: %s, Name: %s, id: %s}", base64.StdEncoding.EncodeToString(h.Hash), h.Name, h.ID)
}

// SignStatus is returned by CCMovelSign and CCMovelMultipleSign, and embedded
// in SignResponse.
type SignStatus struct {
	Code       string
	Field      string
	FieldValue string
	Message    string
	ProcessID  string
}

func (s SignStatus) String() string {
	var b strings.Builder
	b.WriteString("{\n")
	fmt.Fprintf(&b, "    Code: %s\n", s.Code)
	fmt.Fprintf(&b, "    Field: %s\n", s.Field)
	fmt.Fprintf(&b, "    FieldValue: %s\n", s.FieldValue)
	fmt.Fprintf(&b, "    Message: %s\n", s.Message)
	fmt.Fprintf(&b, "    ProcessId: %s\n", s.ProcessID)
	b.WriteString("}")
	return b.String()
}

// SignResponse is returned by ValidateOtp
type SignResponse struct {
	ArrayOfHashStructure []HashStructure
	Signature            []byte
	Status               SignStatus
}

func (r SignResponse) String() string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("    ArrayOfHashStructure: [")
	for i, h := range r.ArrayOfHashStructure {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(h.String())
	}
	b.WriteString("]\n")
	fmt.Fprintf(&b, "    Signature: %s\n", base64.StdEncoding.EncodeToString(r.Signature))
	fmt.Fprintf(&b, "    Status: %s\n", strings.ReplaceAll(r.Status.String(), "\n", "\n    "))
	b.WriteString("}")
	return b.String()
}
