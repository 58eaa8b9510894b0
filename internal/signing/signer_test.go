package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestSign_VerifiesWithPublicKey(t *testing.T) {
	key := testKey(t)
	signer := NewFromKey(key)

	body := []byte(`{"challenge":"abc123"}`)
	sig, err := signer.Sign(body)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sig)
	require.NoError(t, err)

	digest := sha512.Sum512(body)
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA512, digest[:], raw))
}

func TestSign_ByteExact(t *testing.T) {
	signer := NewFromKey(testKey(t))

	// Trailing whitespace is part of the signed message.
	a, err := signer.Sign([]byte("challenge"))
	require.NoError(t, err)
	b, err := signer.Sign([]byte("challenge\n"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNewFromPEM_PKCS1(t *testing.T) {
	key := testKey(t)
	path := filepath.Join(t.TempDir(), "key.pem")
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))

	signer, err := NewFromPEM(path)
	require.NoError(t, err)

	_, err = signer.Sign([]byte("x"))
	assert.NoError(t, err)
}

func TestNewFromPEM_PKCS8(t *testing.T) {
	key := testKey(t)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.pem")
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))

	_, err = NewFromPEM(path)
	assert.NoError(t, err)
}

func TestNewFromPEM_NotPEM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := NewFromPEM(path)
	assert.Error(t, err)
}

func TestHandler_SignsBody(t *testing.T) {
	key := testKey(t)
	h := NewHandler(NewFromKey(key), zap.NewNop())

	body := "challenge-payload"
	req := httptest.NewRequest(http.MethodPost, "/print/sign", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Sign(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	raw, err := base64.StdEncoding.DecodeString(rec.Body.String())
	require.NoError(t, err)
	digest := sha512.Sum512([]byte(body))
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA512, digest[:], raw))
}

func TestHandler_NoKeyConfigured(t *testing.T) {
	h := NewHandler(nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/print/sign", strings.NewReader("challenge"))
	rec := httptest.NewRecorder()

	h.Sign(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Body.String())
}
