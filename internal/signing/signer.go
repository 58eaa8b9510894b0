// Package signing answers print-service certificate challenges. The
// challenge body must be signed byte-exact: no trimming, no JSON wrapping.
package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
)

type Signer struct {
	key *rsa.PrivateKey
}

func NewFromPEM(path string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("signing key file %s contains no PEM block", path)
	}

	key, err := parseRSAKey(block)
	if err != nil {
		return nil, fmt.Errorf("parsing signing key: %w", err)
	}

	return &Signer{key: key}, nil
}

func NewFromKey(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

func parseRSAKey(block *pem.Block) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not RSA")
	}
	return key, nil
}

// Sign returns the base64-encoded RSA-SHA512 signature over body, exactly as
// received.
func (s *Signer) Sign(body []byte) (string, error) {
	digest := sha512.Sum512(body)

	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA512, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing challenge: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}
