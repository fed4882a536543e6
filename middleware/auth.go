package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/kasunvimarshana/TrackVault-sub000/config"
	"github.com/tv42/zbase32"
)

const (
	SignatureHeader   = "X-Signature"
	RequestTimeHeader = "X-Request-Time"
)

type contextKey string

// ActorContextKey holds the hex-encoded compressed pubkey recovered from the
// request signature. It identifies the mutating actor for audit purposes;
// session issuance is not this package's concern.
const ActorContextKey contextKey = "actor_pubkey"

var ErrInvalidSignature = fmt.Errorf("invalid signature")
var SignedMsgPrefix = []byte("trackvault-sync:")

func checkApiKey(config *config.Config, r *http.Request) error {
	if config.CACert == nil {
		return nil
	}

	authHeader := r.Header.Get("Authorization")
	if len(authHeader) <= 7 || !strings.HasPrefix(authHeader, "Bearer ") {
		return fmt.Errorf("invalid auth header")
	}

	apiKey := authHeader[7:]
	block, err := base64.StdEncoding.DecodeString(apiKey)
	if err != nil {
		return fmt.Errorf("could not decode auth header: %v", err)
	}

	cert, err := x509.ParseCertificate(block)
	if err != nil {
		return fmt.Errorf("could not parse certificate: %v", err)
	}

	rootPool := x509.NewCertPool()
	rootPool.AddCert(config.CACert.Raw)

	chains, err := cert.Verify(x509.VerifyOptions{
		Roots: rootPool,
	})
	if err != nil {
		return fmt.Errorf("certificate verification error: %v", err)
	}
	if len(chains) != 1 || len(chains[0]) != 2 || !chains[0][0].Equal(cert) || !chains[0][1].Equal(config.CACert.Raw) {
		return fmt.Errorf("certificate verification error: invalid chain of trust")
	}

	return nil
}

// Authenticate verifies the request signature and returns a context carrying
// the recovered actor identity. body is the raw request body as received;
// for GET requests it is nil.
func Authenticate(config *config.Config, r *http.Request, body []byte) (context.Context, error) {
	if err := checkApiKey(config, r); err != nil {
		return nil, err
	}

	signature := r.Header.Get(SignatureHeader)
	requestTime := r.Header.Get(RequestTimeHeader)
	if signature == "" || requestTime == "" {
		return nil, ErrInvalidSignature
	}

	toVerify := SignedPayload(r.Method, r.URL.Path, requestTime, body)
	pubkey, err := VerifyMessage([]byte(toVerify), signature)
	if err != nil {
		return nil, err
	}

	pubkeyBytes := pubkey.SerializeCompressed()
	newContext := context.WithValue(r.Context(), ActorContextKey, hex.EncodeToString(pubkeyBytes))
	return newContext, nil
}

// Actor returns the identity set by Authenticate, or "" when absent.
func Actor(ctx context.Context) string {
	actor, _ := ctx.Value(ActorContextKey).(string)
	return actor
}

// SignedPayload is the canonical string covered by a request signature.
func SignedPayload(method, path, requestTime string, body []byte) string {
	return fmt.Sprintf(
		"%v-%v-%x-%v",
		method,
		path,
		body,
		requestTime,
	)
}

func SignMessage(key *btcec.PrivateKey, msg []byte) (string, error) {
	message := append(SignedMsgPrefix, msg...)
	digest := chainhash.DoubleHashB(message)
	signture, err := ecdsa.SignCompact(key, digest, true)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %v", err)
	}
	sig := zbase32.EncodeToString(signture)
	return sig, nil
}

func VerifyMessage(message []byte, signature string) (*btcec.PublicKey, error) {
	// The signature should be zbase32 encoded
	sig, err := zbase32.DecodeString(signature)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %v", err)
	}

	msg := append(SignedMsgPrefix, message...)
	first := sha256.Sum256(msg)
	second := sha256.Sum256(first[:])
	pubkey, wasCompressed, err := ecdsa.RecoverCompact(
		sig,
		second[:],
	)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	if !wasCompressed {
		return nil, ErrInvalidSignature
	}

	return pubkey, nil
}
