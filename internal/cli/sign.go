package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fantasylifeleague/healthapi/internal/health"
	"github.com/fantasylifeleague/healthapi/internal/signature"
)

// ErrSignatureMismatch is returned by verify when the signature does not match.
var ErrSignatureMismatch = errors.New("signature does not match payload")

func newCanonicalCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "canonical",
		Short: "Print the canonical signing input of a payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			raw, err := decodeRaw(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := out.Write(signature.Canonicalize(raw)); err != nil {
				return err
			}
			_, err = fmt.Fprintln(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "payload JSON file, - for stdin")
	return cmd
}

func newSignCmd(v *viper.Viper) *cobra.Command {
	var file, userID, version string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a payload with a device key",
		Long: `Sign prints the hex HMAC-SHA256 signature of a payload. With --user it
prints a complete submission body ready to POST to /api/health/submit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := stringFlag(cmd, v, "key")
			if key == "" {
				return errors.New("a signing key is required (--key or HEALTHSIGN_KEY)")
			}

			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			raw, err := decodeRaw(data)
			if err != nil {
				return err
			}

			sig := signature.Sign(raw, []byte(key))
			if userID == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), sig)
				return err
			}

			return writeJSON(cmd.OutOrStdout(), health.Submission{
				UserID: userID,
				Data: health.VerifiedHealthData{
					RawData:   raw,
					Signature: sig,
					Version:   version,
				},
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "payload JSON file, - for stdin")
	cmd.Flags().String("key", "", "device signing key (env HEALTHSIGN_KEY)")
	cmd.Flags().StringVar(&userID, "user", "", "wrap the result in a submission for this user")
	cmd.Flags().StringVar(&version, "payload-version", "1.0", "version recorded in the submission")
	return cmd
}

func newVerifyCmd(v *viper.Viper) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the signature of a submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := stringFlag(cmd, v, "key")
			if key == "" {
				return errors.New("a signing key is required (--key or HEALTHSIGN_KEY)")
			}

			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			signed, err := decodeSigned(data)
			if err != nil {
				return err
			}

			if !signature.Verify(signed, []byte(key)) {
				return ErrSignatureMismatch
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "signature valid")
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "submission JSON file, - for stdin")
	cmd.Flags().String("key", "", "device signing key (env HEALTHSIGN_KEY)")
	return cmd
}
