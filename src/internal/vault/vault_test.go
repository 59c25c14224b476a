package vault

import (
	"encoding/base64"
	"testing"

	"fortnite-lobbybot-svc/src/internal/adapter"
	"fortnite-lobbybot-svc/src/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestRoundTrip(t *testing.T) {
	svc, err := New(testKey(0x42))
	require.NoError(t, err)

	creds := adapter.Credentials{
		DeviceID:  "device-123",
		AccountID: "acct-456",
		Secret:    "s3cr3t",
	}

	blob, err := svc.Encrypt(creds)
	require.NoError(t, err)
	assert.NotContains(t, blob, "s3cr3t")

	got, err := svc.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, creds, got)
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	svc, err := New(testKey(0x42))
	require.NoError(t, err)

	creds := adapter.Credentials{DeviceID: "d", AccountID: "a", Secret: "s"}
	first, err := svc.Encrypt(creds)
	require.NoError(t, err)
	second, err := svc.Encrypt(creds)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecryptWrongKey(t *testing.T) {
	enc, err := New(testKey(0x01))
	require.NoError(t, err)
	dec, err := New(testKey(0x02))
	require.NoError(t, err)

	blob, err := enc.Encrypt(adapter.Credentials{DeviceID: "d"})
	require.NoError(t, err)

	_, err = dec.Decrypt(blob)
	assert.ErrorIs(t, err, models.ErrCredentialDecrypt)
}

func TestDecryptGarbage(t *testing.T) {
	svc, err := New(testKey(0x42))
	require.NoError(t, err)

	_, err = svc.Decrypt("not base64 at all!!!")
	assert.ErrorIs(t, err, models.ErrCredentialDecrypt)

	_, err = svc.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, models.ErrCredentialDecrypt)
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New("%%%not-base64%%%")
	assert.Error(t, err)

	_, err = New(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.Error(t, err)
}
