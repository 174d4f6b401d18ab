package cli

import (
	"bytes"
	"testing"

	"github.com/dcu/scmd-soapclient/internal/config"
	"github.com/dcu/scmd-soapclient/scmd"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		args         []string
		expectExit   bool
		expectErr    string
		expectedCmd  string
		expectedArgs scmd.Args
		check        func(t *testing.T, inv *Invocation, output string)
	}{
		{
			name:         "GetCertificate",
			args:         []string{"GetCertificate", "+351 912345678"},
			expectedCmd:  "GetCertificate",
			expectedArgs: scmd.Args{User: "+351 912345678"},
		},
		{
			name:         "Alias with flags after positionals",
			args:         []string{"gc", "+351 912345678", "-applicationId", "other-app", "-D"},
			expectedCmd:  "GetCertificate",
			expectedArgs: scmd.Args{User: "+351 912345678"},
			check: func(t *testing.T, inv *Invocation, _ string) {
				require.Equal(t, "other-app", inv.ApplicationID)
				require.True(t, inv.Debug)
			},
		},
		{
			name:         "CCMovelSign with document options",
			args:         []string{"ms", "--debug", "-docName", "contract.pdf", "-hash", "0a0b", "+351 912345678", "1234"},
			expectedCmd:  "CCMovelSign",
			expectedArgs: scmd.Args{User: "+351 912345678", Pin: "1234", DocName: "contract.pdf", Hash: []byte{0x0a, 0x0b}},
			check: func(t *testing.T, inv *Invocation, _ string) {
				require.True(t, inv.Debug)
			},
		},
		{
			name:         "CCMovelMultipleSign",
			args:         []string{"mms", "+351 912345678", "1234"},
			expectedCmd:  "CCMovelMultipleSign",
			expectedArgs: scmd.Args{User: "+351 912345678", Pin: "1234"},
		},
		{
			name:         "ValidateOtp",
			args:         []string{"otp", "123456", "process-1"},
			expectedCmd:  "ValidateOtp",
			expectedArgs: scmd.Args{OTP: "123456", ProcessID: "process-1"},
		},
		{
			name:         "TestAll with global options",
			args:         []string{"-config", "/etc/cmd.yaml", "-env", "prod", "test", "+351 912345678", "1234"},
			expectedCmd:  "TestAll",
			expectedArgs: scmd.Args{User: "+351 912345678", Pin: "1234"},
			check: func(t *testing.T, inv *Invocation, _ string) {
				require.Equal(t, "/etc/cmd.yaml", inv.ConfigPath)
				require.Equal(t, "prod", inv.Env)
			},
		},
		{
			name:         "ListOperations",
			args:         []string{"ops", "-D"},
			expectedCmd:  "ListOperations",
			expectedArgs: scmd.Args{},
			check: func(t *testing.T, inv *Invocation, _ string) {
				require.True(t, inv.Debug)
				require.False(t, inv.Command.RequiresApplicationID())
			},
		},
		{
			name:       "Version",
			args:       []string{"-V"},
			expectExit: true,
			check: func(t *testing.T, _ *Invocation, output string) {
				require.Equal(t, Version+"\n", output)
			},
		},
		{
			name:       "Long version",
			args:       []string{"--version"},
			expectExit: true,
			check: func(t *testing.T, _ *Invocation, output string) {
				require.Equal(t, Version+"\n", output)
			},
		},
		{
			name:       "No operation prints usage hint",
			args:       []string{},
			expectExit: true,
			check: func(t *testing.T, _ *Invocation, output string) {
				require.Contains(t, output, "Use -h for usage:")
			},
		},
		{
			name:       "Help",
			args:       []string{"-h"},
			expectExit: true,
			check: func(t *testing.T, _ *Invocation, output string) {
				require.Contains(t, output, "Usage:")
				require.Contains(t, output, "CCMovelMultipleSign")
			},
		},
		{
			name:       "Operation help",
			args:       []string{"otp", "-h"},
			expectExit: true,
			check: func(t *testing.T, _ *Invocation, output string) {
				require.Contains(t, output, "ProcessId")
			},
		},
		{
			name:      "Unknown operation",
			args:      []string{"Sign"},
			expectErr: `invalid operation "Sign"`,
		},
		{
			name:      "Missing positional",
			args:      []string{"ms", "+351 912345678"},
			expectErr: "CCMovelSign: expected 2 arguments, got 1",
		},
		{
			name:      "Invalid hash",
			args:      []string{"ms", "-hash", "xyz", "+351 912345678", "1234"},
			expectErr: "invalid -hash",
		},
		{
			name:      "Unknown flag",
			args:      []string{"gc", "-pin", "1", "+351 912345678"},
			expectErr: "flag provided but not defined: -pin",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := &bytes.Buffer{}
			inv, exit, err := Parse(tc.args, out)

			if tc.expectErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.expectErr)
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				require.Equal(t, 2, exitErr.Code)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expectExit, exit)

			if !tc.expectExit {
				require.NotNil(t, inv)
				require.Equal(t, tc.expectedCmd, inv.Command.Name)
				if diff := cmp.Diff(tc.expectedArgs, inv.Args); diff != "" {
					t.Errorf("args mismatch (-want +got):\n%s", diff)
				}
			}

			if tc.check != nil {
				tc.check(t, inv, out.String())
			}
		})
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"gc", "ms", "mms", "otp", "test"} {
		cmd, ok := Lookup(name)
		require.True(t, ok, name)
		require.Equal(t, name, cmd.Alias)
		require.True(t, cmd.RequiresApplicationID(), name)
	}

	cmd, ok := Lookup("ListOperations")
	require.True(t, ok)
	require.Equal(t, "ops", cmd.Alias)

	_, ok = Lookup("getcertificate")
	require.False(t, ok)
}

func TestInvocationApply(t *testing.T) {
	cfg := config.Default()
	cfg.ApplicationID = "from-config"

	inv := &Invocation{ApplicationID: "from-flag", Env: "1"}
	require.NoError(t, inv.Apply(cfg))
	require.Equal(t, "from-flag", cfg.ApplicationID)
	require.Equal(t, config.Prod, cfg.Env)

	cfg = config.Default()
	cfg.ApplicationID = "from-config"
	require.NoError(t, (&Invocation{}).Apply(cfg))
	require.Equal(t, "from-config", cfg.ApplicationID)

	err := (&Invocation{Env: "staging"}).Apply(cfg)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
}
