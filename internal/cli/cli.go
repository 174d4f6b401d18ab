package cli

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dcu/scmd-soapclient/internal/config"
	"github.com/dcu/scmd-soapclient/scmd"
)

const (
	ProgramName = "cmdtest"
	Description = "Preprod Signature CMD (SOAP) version 1.6 test Command Line Program"
	Version     = "version: 1.0"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Command is a sub-command of the CLI
type Command struct {
	Name        string
	Alias       string
	Help        string
	Positionals []positional
	// signOptions enables -docName and -hash
	signOptions bool
	// wsdlOnly commands read the WSDL and need no ApplicationId
	wsdlOnly bool
}

// RequiresApplicationID reports whether the command calls a CMD operation
func (c Command) RequiresApplicationID() bool {
	return !c.wsdlOnly
}

type positional struct {
	name string
	help string
}

var (
	userArg = positional{name: "user", help: "user phone number (+XXX NNNNNNNNN)"}
	pinArg  = positional{name: "pin", help: "CMD signature PIN"}
)

// Commands lists the sub-commands in help order
var Commands = []Command{
	{Name: "GetCertificate", Alias: "gc", Help: "Get user certificate", Positionals: []positional{userArg}},
	{Name: "CCMovelSign", Alias: "ms", Help: "Start signature process", Positionals: []positional{userArg, pinArg}, signOptions: true},
	{Name: "CCMovelMultipleSign", Alias: "mms", Help: "Start multiple signature process", Positionals: []positional{userArg, pinArg}},
	{Name: "ValidateOtp", Alias: "otp", Help: "Validate OTP", Positionals: []positional{
		{name: "OTP", help: "OTP received in your device"},
		{name: "ProcessId", help: "ProcessID received in the answer of the CCMovelSign/CCMovelMultipleSign command"},
	}},
	{Name: "TestAll", Alias: "test", Help: "Automatically test all commands", Positionals: []positional{userArg, pinArg}},
	{Name: "ListOperations", Alias: "ops", Help: "List the operations published in the service WSDL", wsdlOnly: true},
}

// Lookup finds a command by name or alias
func Lookup(name string) (Command, bool) {
	for _, c := range Commands {
		if c.Name == name || c.Alias == name {
			return c, true
		}
	}

	return Command{}, false
}

// Invocation is the parsed command line
type Invocation struct {
	Command Command
	Args    scmd.Args
	Debug   bool

	// overrides of the loaded configuration, empty when not given
	ApplicationID string
	ConfigPath    string
	Env           string
}

// Apply copies the command line overrides into cfg
func (inv *Invocation) Apply(cfg *config.Config) error {
	if inv.ApplicationID != "" {
		cfg.ApplicationID = inv.ApplicationID
	}

	if inv.Env != "" {
		env, err := config.ParseEnvironment(inv.Env)
		if err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}
		cfg.Env = env
	}

	return nil
}

func usageHint(output io.Writer) {
	fmt.Fprintf(output, "Use -h for usage:\n   %s -h for all operations\n   %s <oper1> -h for usage of operation <oper1>\n", ProgramName, ProgramName)
}

// Parse processes command-line arguments. It returns the Invocation, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Invocation, bool, error) {
	flagSet := flag.NewFlagSet(ProgramName, flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprintf(output, "\n%s\n\nUsage:\n  %s [options] <operation> [arguments]\n\nCCMovelDigitalSignature Service operations:\n", Description, ProgramName)
		for _, c := range Commands {
			fmt.Fprintf(output, "  %-20s %-5s %s\n", c.Name, c.Alias, c.Help)
		}
		fmt.Fprint(output, "\nOptions:\n")
		flagSet.PrintDefaults()
	}

	versionFlag := flagSet.Bool("V", false, "show program version")
	versionLongFlag := flagSet.Bool("version", false, "show program version")
	configFlag := flagSet.String("config", "", "Path to a YAML configuration file.")
	envFlag := flagSet.String("env", "", "Service environment: 'preprod' (0) or 'prod' (1).")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *versionFlag || *versionLongFlag {
		fmt.Fprintln(output, Version)
		return nil, true, nil
	}

	if flagSet.NArg() == 0 {
		usageHint(output)
		return nil, true, nil
	}

	cmd, ok := Lookup(flagSet.Arg(0))
	if !ok {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid operation %q, use -h for the list of operations", flagSet.Arg(0))}
	}

	inv, exit, err := parseCommand(cmd, flagSet.Args()[1:], output)
	if err != nil || exit {
		return nil, exit, err
	}

	inv.ConfigPath = *configFlag
	inv.Env = *envFlag

	return inv, false, nil
}

func parseCommand(cmd Command, args []string, output io.Writer) (*Invocation, bool, error) {
	flagSet := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		names := make([]string, 0, len(cmd.Positionals))
		for _, p := range cmd.Positionals {
			names = append(names, p.name)
		}
		fmt.Fprintf(output, "\n%s\n\nUsage:\n  %s %s|%s [options] %s\n\nArguments:\n", cmd.Help, ProgramName, cmd.Name, cmd.Alias, strings.Join(names, " "))
		for _, p := range cmd.Positionals {
			fmt.Fprintf(output, "  %s\n    \t%s\n", p.name, p.help)
		}
		fmt.Fprint(output, "\nOptions:\n")
		flagSet.PrintDefaults()
	}

	appIDFlag := flagSet.String("applicationId", "", "CMD ApplicationId")
	debugFlag := flagSet.Bool("D", false, "show debug information")
	debugLongFlag := flagSet.Bool("debug", false, "show debug information")

	var docNameFlag, hashFlag *string
	if cmd.signOptions {
		docNameFlag = flagSet.String("docName", "", "document name (default \""+scmd.DefaultDocName+"\")")
		hashFlag = flagSet.String("hash", "", "hex SHA-256 digest of the document (default: digest of a sample text)")
	}

	// flags may come before, between or after the positional arguments
	var positionals []string
	rest := args
	for {
		if err := flagSet.Parse(rest); err != nil {
			if err == flag.ErrHelp {
				return nil, true, nil
			}
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		if flagSet.NArg() == 0 {
			break
		}
		positionals = append(positionals, flagSet.Arg(0))
		rest = flagSet.Args()[1:]
	}

	if len(positionals) != len(cmd.Positionals) {
		flagSet.Usage()
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("%s: expected %d arguments, got %d", cmd.Name, len(cmd.Positionals), len(positionals))}
	}

	inv := &Invocation{
		Command:       cmd,
		Debug:         *debugFlag || *debugLongFlag,
		ApplicationID: *appIDFlag,
	}

	for i, p := range cmd.Positionals {
		switch p.name {
		case "user":
			inv.Args.User = positionals[i]
		case "pin":
			inv.Args.Pin = positionals[i]
		case "OTP":
			inv.Args.OTP = positionals[i]
		case "ProcessId":
			inv.Args.ProcessID = positionals[i]
		}
	}

	if cmd.signOptions {
		inv.Args.DocName = *docNameFlag
		if *hashFlag != "" {
			hash, err := hex.DecodeString(*hashFlag)
			if err != nil {
				return nil, false, &ExitError{Code: 2, Message: "invalid -hash: must be hex encoded"}
			}
			inv.Args.Hash = hash
		}
	}

	return inv, false, nil
}
