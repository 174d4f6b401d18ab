// Package config loads the settings of the CMD test client: the ApplicationId
// issued by the service operator, the environment switch with its WSDL table,
// the document list used by multiple signature requests and the optional
// client certificate that turns on WS-Security signing.
package config
