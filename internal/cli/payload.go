package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fantasylifeleague/healthapi/internal/health"
)

// readInput reads path, or stdin when path is "-" or empty.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// decodeRaw accepts a bare payload, a signed envelope or a full submission and
// returns the payload.
func decodeRaw(data []byte) (health.RawHealthData, error) {
	var envelope struct {
		RawData *health.RawHealthData `json:"rawData"`
		Data    *struct {
			RawData health.RawHealthData `json:"rawData"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return health.RawHealthData{}, fmt.Errorf("decode payload: %w", err)
	}

	switch {
	case envelope.Data != nil:
		return envelope.Data.RawData, nil
	case envelope.RawData != nil:
		return *envelope.RawData, nil
	}

	var raw health.RawHealthData
	if err := json.Unmarshal(data, &raw); err != nil {
		return health.RawHealthData{}, fmt.Errorf("decode payload: %w", err)
	}
	return raw, nil
}

// decodeSigned accepts a signed envelope or a full submission.
func decodeSigned(data []byte) (health.VerifiedHealthData, error) {
	var sub health.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return health.VerifiedHealthData{}, fmt.Errorf("decode submission: %w", err)
	}
	if sub.Data.Signature != "" {
		return sub.Data, nil
	}

	var envelope health.VerifiedHealthData
	if err := json.Unmarshal(data, &envelope); err != nil {
		return health.VerifiedHealthData{}, fmt.Errorf("decode submission: %w", err)
	}
	if envelope.Signature == "" {
		return health.VerifiedHealthData{}, errors.New("decode submission: no signature found")
	}
	return envelope, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
