package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasylifeleague/healthapi/internal/auth"
	"github.com/fantasylifeleague/healthapi/internal/cli"
	"github.com/fantasylifeleague/healthapi/internal/health"
	"github.com/fantasylifeleague/healthapi/internal/signature"
)

const deviceKey = "device-secret"

func samplePayload() health.RawHealthData {
	ts := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	return health.RawHealthData{
		Date:      ts.Truncate(24 * time.Hour),
		Steps:     8000,
		Calories:  420.5,
		Distance:  6000,
		Workouts:  []health.Workout{},
		Timestamp: ts,
		DeviceInfo: health.DeviceInfo{
			Model:               "iPhone15,2",
			SystemVersion:       "17.4",
			IdentifierForVendor: "abc",
		},
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestCanonical(t *testing.T) {
	raw := samplePayload()

	out, err := run(t, mustJSON(t, raw), "canonical")

	require.NoError(t, err)
	assert.Equal(t, string(signature.Canonicalize(raw))+"\n", out)
}

func TestCanonical_FromSubmission(t *testing.T) {
	raw := samplePayload()
	sub := health.Submission{
		UserID: "user-1",
		Data:   health.VerifiedHealthData{RawData: raw, Signature: "00"},
	}

	out, err := run(t, mustJSON(t, sub), "canonical")

	require.NoError(t, err)
	assert.Equal(t, string(signature.Canonicalize(raw))+"\n", out)
}

func TestSign(t *testing.T) {
	raw := samplePayload()

	out, err := run(t, mustJSON(t, raw), "sign", "--key", deviceKey)

	require.NoError(t, err)
	assert.Equal(t, signature.Sign(raw, []byte(deviceKey)), strings.TrimSpace(out))
}

func TestSign_KeyFromEnvironment(t *testing.T) {
	t.Setenv("HEALTHSIGN_KEY", deviceKey)
	raw := samplePayload()

	out, err := run(t, mustJSON(t, raw), "sign")

	require.NoError(t, err)
	assert.Equal(t, signature.Sign(raw, []byte(deviceKey)), strings.TrimSpace(out))
}

func TestSign_RequiresKey(t *testing.T) {
	_, err := run(t, mustJSON(t, samplePayload()), "sign")

	assert.ErrorContains(t, err, "signing key is required")
}

func TestSignThenVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(mustJSON(t, samplePayload())), 0o600))

	submission, err := run(t, "", "sign", "--key", deviceKey, "--user", "user-1", "--file", path)
	require.NoError(t, err)

	var sub health.Submission
	require.NoError(t, json.Unmarshal([]byte(submission), &sub))
	assert.Equal(t, "user-1", sub.UserID)
	assert.Equal(t, "1.0", sub.Data.Version)

	out, err := run(t, submission, "verify", "--key", deviceKey)
	require.NoError(t, err)
	assert.Equal(t, "signature valid\n", out)

	_, err = run(t, submission, "verify", "--key", "other-key")
	assert.ErrorIs(t, err, cli.ErrSignatureMismatch)
}

func TestVerify_TamperedPayload(t *testing.T) {
	raw := samplePayload()
	signed := health.VerifiedHealthData{
		RawData:   raw,
		Signature: signature.Sign(raw, []byte(deviceKey)),
	}
	signed.RawData.Steps = 20000

	_, err := run(t, mustJSON(t, signed), "verify", "--key", deviceKey)

	assert.ErrorIs(t, err, cli.ErrSignatureMismatch)
}

func TestVerify_MissingSignature(t *testing.T) {
	_, err := run(t, mustJSON(t, samplePayload()), "verify", "--key", deviceKey)

	assert.ErrorContains(t, err, "no signature")
}

func TestToken(t *testing.T) {
	const jwtKey = "test-signing-key-at-least-32-bytes!!"

	out, err := run(t, "", "token", "--user", "user-1", "--jwt-signing-key", jwtKey, "--issuer", "league")
	require.NoError(t, err)

	jwtService := auth.NewJWTService(auth.JWTConfig{SigningKey: jwtKey, Issuer: "league"})
	userID, err := jwtService.Authenticate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestToken_RequiresUser(t *testing.T) {
	_, err := run(t, "", "token", "--jwt-signing-key", "k")

	assert.ErrorContains(t, err, "--user is required")
}
