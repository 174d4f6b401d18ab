package scmd

import (
	"context"
	"fmt"
	"io"

	soapclient "github.com/dcu/scmd-soapclient"
	"github.com/pkg/errors"
)

// OTPPrompt is the question asked before every ValidateOtp of RunAll
const OTPPrompt = "Enter OTP received in your device: "

// Prompter asks the user for a line of input
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, error)
}

// RunAll runs every operation in sequence, feeding the ProcessId of each sign
// request into the ValidateOtp that follows it. The OTPs are read through p.
// The first failure stops the run.
func RunAll(ctx context.Context, client soapclient.ClientIface, args Args, out io.Writer, p Prompter) error {
	banner(out, "GetCertificate", true)
	cert, err := GetCertificate(ctx, client, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cert)

	banner(out, "CCMovelSign", false)
	status, err := CCMovelSign(ctx, client, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, status)

	if err := validate(ctx, client, args, status.ProcessID, out, p); err != nil {
		return err
	}

	banner(out, "CCMovelMultipleSign", false)
	status, err = CCMovelMultipleSign(ctx, client, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, status)

	if err := validate(ctx, client, args, status.ProcessID, out, p); err != nil {
		return err
	}

	fmt.Fprintln(out, "\n+++ Test All end")
	return nil
}

func validate(ctx context.Context, client soapclient.ClientIface, args Args, processID string, out io.Writer, p Prompter) error {
	banner(out, "ValidateOtp", false)

	otp, err := p.Prompt(ctx, OTPPrompt)
	if err != nil {
		return errors.Wrap(err, "reading OTP")
	}

	args.ProcessID = processID
	args.OTP = otp

	res, err := ValidateOtp(ctx, client, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res)

	return nil
}

func banner(out io.Writer, op string, first bool) {
	if !first {
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "+++\n+Testing %s\n+++\n", op)
}
