// Package cli implements healthsign, a developer tool that produces the exact
// signing input, signatures and bearer tokens the health API expects.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix namespaces environment variables read by flags, e.g. HEALTHSIGN_KEY.
const envPrefix = "HEALTHSIGN"

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the healthsign command tree.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "healthsign",
		Short: "Sign and verify health-data payloads for the league API",
		Long: `healthsign reproduces the canonical signing input of a health-data
payload, signs it with a device key and checks existing signatures.
It also mints bearer tokens for calling a local API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCanonicalCmd())
	root.AddCommand(newSignCmd(v))
	root.AddCommand(newVerifyCmd(v))
	root.AddCommand(newTokenCmd(v))
	root.AddCommand(newVersionCmd())
	return root
}

// stringFlag returns the flag value, falling back to the environment when the
// flag was not set on the command line.
func stringFlag(cmd *cobra.Command, v *viper.Viper, name string) string {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return f.Value.String()
	}
	if value := v.GetString(name); value != "" {
		return value
	}
	value, _ := cmd.Flags().GetString(name)
	return value
}
