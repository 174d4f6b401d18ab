package soapclient

import (
	"context"

	"github.com/beevik/etree"
)

// ClientIface defines the interface for a SOAP Client. It makes mocking the client easier in your tests
type ClientIface interface {
	ListOperations(ctx context.Context) ([]string, error)
	RawQuery(ctx context.Context, op Operation) ([]byte, error)
	Query(ctx context.Context, op Operation) (*etree.Document, error)
}
