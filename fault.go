package soapclient

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Fault is a SOAP 1.1 fault returned by the service
type Fault struct {
	Code   string
	String string
	Actor  string
	Detail string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

// HTTPError is returned when the service answers with a non 2xx status and no SOAP fault
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected http status %d", e.StatusCode)
}

// faultFrom extracts the Fault of a response document, if any
func faultFrom(doc *etree.Document) *Fault {
	el := doc.FindElement("//Envelope/Body/Fault")
	if el == nil {
		return nil
	}

	text := func(path string) string {
		if c := el.FindElement(path); c != nil {
			return strings.TrimSpace(c.Text())
		}
		return ""
	}

	f := &Fault{
		Code:   text("faultcode"),
		String: text("faultstring"),
		Actor:  text("faultactor"),
	}

	if detail := el.FindElement("detail"); detail != nil {
		d := etree.NewDocument()
		d.SetRoot(detail.Copy())
		f.Detail, _ = d.WriteToString()
	}

	return f
}
