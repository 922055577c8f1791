// Copyright 2025 Hooksmith Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package githubapp

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyPEM(t *testing.T) ([]byte, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	data := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return data, key
}

func newTestCredentials(t *testing.T) Credentials {
	t.Helper()

	data, _ := testKeyPEM(t)
	creds, err := NewCredentials(42, data)
	require.NoError(t, err)
	return creds
}

func TestLoadCredentialsPrefersEnv(t *testing.T) {
	data, _ := testKeyPEM(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "other-key.pem")
	require.NoError(t, os.WriteFile(file, []byte("not a key"), 0o600))

	t.Setenv("TEST_PRIVATE_KEY", string(data))

	creds, err := LoadCredentials(42, "TEST_PRIVATE_KEY", file)
	require.NoError(t, err)
	assert.Equal(t, int64(42), creds.AppID)
}

func TestLoadCredentialsFallsBackToFile(t *testing.T) {
	data, _ := testKeyPEM(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "private-key.pem")
	require.NoError(t, os.WriteFile(file, data, 0o600))

	t.Setenv("TEST_PRIVATE_KEY", "")

	creds, err := LoadCredentials(42, "TEST_PRIVATE_KEY", file)
	require.NoError(t, err)
	assert.Equal(t, int64(42), creds.AppID)
}

func TestLoadCredentialsMissingMaterial(t *testing.T) {
	t.Setenv("TEST_PRIVATE_KEY", "")

	_, err := LoadCredentials(42, "TEST_PRIVATE_KEY", filepath.Join(t.TempDir(), "missing.pem"))
	require.Error(t, err)

	// misconfiguration is distinguishable from a network failure
	var credErr *CredentialsError
	assert.True(t, errors.As(err, &credErr))
}

func TestNewCredentialsRejectsBadInput(t *testing.T) {
	data, _ := testKeyPEM(t)

	var credErr *CredentialsError

	_, err := NewCredentials(0, data)
	require.Error(t, err)
	assert.True(t, errors.As(err, &credErr))

	_, err = NewCredentials(42, []byte("not a key"))
	require.Error(t, err)
	assert.True(t, errors.As(err, &credErr))
}

func TestAssertion(t *testing.T) {
	data, key := testKeyPEM(t)
	creds, err := NewCredentials(42, data)
	require.NoError(t, err)

	now := time.Now()
	signed, err := creds.Assertion(now)
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "42", claims.Issuer)
	assert.WithinDuration(t, now.Add(assertionLifetime), claims.ExpiresAt.Time, time.Second)
	assert.True(t, claims.IssuedAt.Time.Before(now))
}
