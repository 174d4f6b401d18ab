package cli

import (
	"context"
	"fmt"
	"io"

	soapclient "github.com/dcu/scmd-soapclient"
	"github.com/dcu/scmd-soapclient/internal/config"
	"github.com/dcu/scmd-soapclient/scmd"
	"github.com/rs/zerolog"
)

// ClientFactory builds the client handle bound to a WSDL URL
type ClientFactory func(url string, opts soapclient.ClientOpts) soapclient.ClientIface

func defaultClientFactory(url string, opts soapclient.ClientOpts) soapclient.ClientIface {
	return scmd.NewClient(url, opts)
}

// Dispatcher runs one parsed invocation against the CMD service
type Dispatcher struct {
	out       io.Writer
	prompter  scmd.Prompter
	logger    zerolog.Logger
	newClient ClientFactory
}

// NewDispatcher returns a Dispatcher printing results to out. A nil factory
// selects the CMD SOAP client.
func NewDispatcher(out io.Writer, prompter scmd.Prompter, logger zerolog.Logger, factory ClientFactory) *Dispatcher {
	if factory == nil {
		factory = defaultClientFactory
	}

	return &Dispatcher{
		out:       out,
		prompter:  prompter,
		logger:    logger,
		newClient: factory,
	}
}

// Dispatch builds one client for the configured WSDL, runs the command and
// prints its result. Remote failures are returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, inv *Invocation, cfg *config.Config) error {
	if inv.Command.RequiresApplicationID() {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	url, err := cfg.WSDLURL()
	if err != nil {
		return err
	}

	if inv.Debug {
		fmt.Fprintln(d.out, ">> Debug: On")
	}

	client := d.newClient(url, soapclient.ClientOpts{
		Certificate: cfg.Certificate,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Debug:       inv.Debug,
		Timeout:     cfg.Timeout,
		Logger:      &d.logger,
	})

	args := inv.Args
	args.ApplicationID = cfg.ApplicationID
	if len(args.Documents) == 0 {
		args.Documents = cfg.Documents
	}

	d.logger.Debug().Str("command", inv.Command.Name).Str("env", string(cfg.Env)).Str("wsdl", url).Msg("Dispatching command")

	var result fmt.Stringer
	switch inv.Command.Name {
	case "GetCertificate":
		cert, err := scmd.GetCertificate(ctx, client, args)
		if err != nil {
			return err
		}
		fmt.Fprintln(d.out, cert)
		return nil
	case "CCMovelSign":
		result, err = scmd.CCMovelSign(ctx, client, args)
	case "CCMovelMultipleSign":
		result, err = scmd.CCMovelMultipleSign(ctx, client, args)
	case "ValidateOtp":
		result, err = scmd.ValidateOtp(ctx, client, args)
	case "TestAll":
		return scmd.RunAll(ctx, client, args, d.out, d.prompter)
	case "ListOperations":
		ops, err := client.ListOperations(ctx)
		if err != nil {
			return err
		}
		for _, op := range ops {
			fmt.Fprintln(d.out, op)
		}
		return nil
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("unsupported operation %s", inv.Command.Name)}
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(d.out, result)
	return nil
}
