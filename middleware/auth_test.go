package middleware

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	privateKey, err := btcec.NewPrivateKey()
	require.NoError(t, err, "failed to create private key")
	pubkey := privateKey.PubKey().SerializeCompressed()
	message := []byte("test message")
	signature, err := SignMessage(privateKey, message)
	require.NoError(t, err, "failed to sign message")
	recoveredKey, err := VerifyMessage(message, signature)
	require.NoError(t, err, "failed to verify message")
	require.Equal(t, recoveredKey.SerializeCompressed(), pubkey)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	privateKey, err := btcec.NewPrivateKey()
	require.NoError(t, err, "failed to create private key")
	signature, err := SignMessage(privateKey, []byte("original"))
	require.NoError(t, err, "failed to sign message")

	recoveredKey, err := VerifyMessage([]byte("tampered"), signature)
	if err == nil {
		// Compact recovery can yield a key for any digest; a tampered
		// message must at least recover a different identity.
		require.NotEqual(t, privateKey.PubKey().SerializeCompressed(), recoveredKey.SerializeCompressed())
	}
}

func TestSignedPayloadCoversBody(t *testing.T) {
	a := SignedPayload("POST", "/sync", "1700000000", []byte(`{"items":[]}`))
	b := SignedPayload("POST", "/sync", "1700000000", []byte(`{"items":[{}]}`))
	require.NotEqual(t, a, b)
}
