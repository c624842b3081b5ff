package signature_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasylifeleague/healthapi/internal/health"
	"github.com/fantasylifeleague/healthapi/internal/keys"
	"github.com/fantasylifeleague/healthapi/internal/signature"
)

func samplePayload() health.RawHealthData {
	start := time.Date(2026, 2, 3, 7, 15, 0, 0, time.UTC)
	return health.RawHealthData{
		Date:     time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		Steps:    10000,
		Calories: 512.5,
		Distance: 7500,
		Workouts: []health.Workout{{
			Type:      37,
			Duration:  1800,
			Calories:  300,
			Distance:  4000.25,
			StartDate: start,
			EndDate:   start.Add(30 * time.Minute),
			Source:    "com.apple.health",
		}},
		HeartRateReadings: []health.HeartRateReading{
			{BPM: 72, Timestamp: start},
		},
		DeviceInfo: health.DeviceInfo{
			Model:               "iPhone15,2",
			SystemVersion:       "17.4",
			IdentifierForVendor: "A1B2<&>",
		},
		Timestamp: start.Add(time.Hour).Add(123 * time.Millisecond),
	}
}

func TestCanonicalize(t *testing.T) {
	want := `{"calories":512.5,"date":"2026-02-03T00:00:00.000Z",` +
		`"deviceInfo":{"identifierForVendor":"A1B2<&>","model":"iPhone15,2","systemVersion":"17.4"},` +
		`"distance":7500,` +
		`"heartRateReadings":[{"bpm":72,"timestamp":"2026-02-03T07:15:00.000Z"}],` +
		`"steps":10000,"timestamp":"2026-02-03T08:15:00.123Z",` +
		`"workouts":[{"calories":300,"distance":4000.25,"duration":1800,` +
		`"endDate":"2026-02-03T07:45:00.000Z","source":"com.apple.health",` +
		`"startDate":"2026-02-03T07:15:00.000Z","type":37}]}`

	assert.Equal(t, want, string(signature.Canonicalize(samplePayload())))
}

func TestCanonicalize_EmptyCollections(t *testing.T) {
	raw := samplePayload()
	raw.Workouts = nil
	raw.HeartRateReadings = nil

	out := string(signature.Canonicalize(raw))

	assert.Contains(t, out, `"workouts":[]`)
	assert.Contains(t, out, `"heartRateReadings":[]`)
}

func TestCanonicalize_TimezoneIndependent(t *testing.T) {
	raw := samplePayload()
	shifted := raw
	amsterdam := time.FixedZone("CET", 3600)
	shifted.Timestamp = raw.Timestamp.In(amsterdam)
	shifted.Date = raw.Date.In(amsterdam)

	assert.Equal(t, signature.Canonicalize(raw), signature.Canonicalize(shifted))
}

func TestSign_SubMillisecondDetailNotSigned(t *testing.T) {
	key := []byte("secret")
	raw := samplePayload()
	precise := samplePayload()
	precise.Timestamp = precise.Timestamp.Add(456 * time.Microsecond)
	precise.Workouts[0].StartDate = precise.Workouts[0].StartDate.Add(999 * time.Nanosecond)

	assert.Equal(t, signature.Sign(raw, key), signature.Sign(precise, key))

	truncated := precise.Truncated()
	assert.True(t, raw.Timestamp.Equal(truncated.Timestamp))
	assert.True(t, raw.Workouts[0].StartDate.Equal(truncated.Workouts[0].StartDate))
	assert.True(t, signature.Verify(health.VerifiedHealthData{RawData: truncated, Signature: signature.Sign(precise, key)}, key))
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:          "0",
		10000:      "10000",
		7500.5:     "7500.5",
		0.1:        "0.1",
		1e21:       "1000000000000000000000",
		123.456789: "123.456789",
	}
	for in, want := range tests {
		assert.Equal(t, want, signature.FormatNumber(in))
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	raw := samplePayload()
	key := []byte("user-secret")

	data := health.VerifiedHealthData{RawData: raw, Signature: signature.Sign(raw, key), Version: "1.0"}

	assert.True(t, signature.Verify(data, key))
	assert.False(t, signature.Verify(data, []byte("other-secret")))
	assert.Len(t, data.Signature, 64)
}

func TestVerify_UppercaseSignature(t *testing.T) {
	raw := samplePayload()
	key := []byte("user-secret")
	tag := signature.Sign(raw, key)

	upper := []byte(tag)
	for i, c := range upper {
		if c >= 'a' && c <= 'f' {
			upper[i] = c - 'a' + 'A'
		}
	}

	assert.True(t, signature.Verify(health.VerifiedHealthData{RawData: raw, Signature: string(upper)}, key))
}

func TestVerify_TamperedPayload(t *testing.T) {
	raw := samplePayload()
	key := []byte("user-secret")
	data := health.VerifiedHealthData{RawData: raw, Signature: signature.Sign(raw, key)}

	data.RawData.Steps++

	assert.False(t, signature.Verify(data, key))
}

func TestVerify_VersionNotSigned(t *testing.T) {
	raw := samplePayload()
	key := []byte("user-secret")
	data := health.VerifiedHealthData{RawData: raw, Signature: signature.Sign(raw, key), Version: "1.0"}

	data.Version = "2.0"

	assert.True(t, signature.Verify(data, key))
}

func TestVerify_EmptyInputs(t *testing.T) {
	raw := samplePayload()

	assert.False(t, signature.Verify(health.VerifiedHealthData{RawData: raw, Signature: signature.Sign(raw, nil)}, nil))
	assert.False(t, signature.Verify(health.VerifiedHealthData{RawData: raw}, []byte("k")))
}

type failingStore struct{ err error }

func (f failingStore) SigningKey(context.Context, string) ([]byte, error) { return nil, f.err }

func TestVerifier(t *testing.T) {
	store := keys.NewInMemoryStore()
	store.Set("user-1", []byte("secret"))
	verifier := signature.NewVerifier(store)

	raw := samplePayload()
	good := health.VerifiedHealthData{RawData: raw, Signature: signature.Sign(raw, []byte("secret"))}
	bad := health.VerifiedHealthData{RawData: raw, Signature: signature.Sign(raw, []byte("wrong"))}

	require.NoError(t, verifier.Verify(context.Background(), "user-1", good))
	assert.ErrorIs(t, verifier.Verify(context.Background(), "user-1", bad), signature.ErrInvalidSignature)
	assert.ErrorIs(t, verifier.Verify(context.Background(), "unknown", good), signature.ErrInvalidSignature)
}

func TestVerifier_KeyStoreFailure(t *testing.T) {
	errDown := errors.New("connection refused")
	verifier := signature.NewVerifier(failingStore{err: errDown})

	err := verifier.Verify(context.Background(), "user-1", health.VerifiedHealthData{RawData: samplePayload(), Signature: "00"})

	assert.ErrorIs(t, err, errDown)
	assert.NotErrorIs(t, err, signature.ErrInvalidSignature)
}
