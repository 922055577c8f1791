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

// Package githubapp provides the plumbing around the lazy and event packages
// that a GitHub App needs in production: application credentials, the
// JWT-for-token exchange, authenticated API clients with caching and
// middleware, and an HTTP dispatcher that turns webhook deliveries into
// classified events.
package githubapp

import (
	"crypto/rsa"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

const (
	// DefaultPrivateKeyEnv is the environment variable consulted first for
	// the application's PEM private key.
	DefaultPrivateKeyEnv = "PRIVATE_KEY"

	// DefaultPrivateKeyFile is read when the environment variable is unset.
	DefaultPrivateKeyFile = "private-key.pem"

	// assertionLifetime is the validity window of a signed app assertion.
	// GitHub rejects anything over ten minutes; two is plenty for one
	// token exchange.
	assertionLifetime = 2 * time.Minute

	// assertionBackdate guards against clock drift between this process
	// and GitHub when setting the assertion's issued-at time.
	assertionBackdate = 60 * time.Second
)

// CredentialsError reports missing or unusable credential material. It is a
// distinct type so operators can tell misconfiguration apart from a
// transient network failure on the same fetch path.
type CredentialsError struct {
	Reason string
	Cause  error
}

func (e *CredentialsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid app credentials: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("invalid app credentials: %s", e.Reason)
}

func (e *CredentialsError) Unwrap() error {
	return e.Cause
}

// Credentials is the application identity: the app (integration) ID and its
// PEM-encoded RSA private key.
type Credentials struct {
	AppID      int64
	PrivateKey []byte

	key *rsa.PrivateKey
}

// NewCredentials parses the given key material for the app.
func NewCredentials(appID int64, privateKey []byte) (Credentials, error) {
	if appID <= 0 {
		return Credentials{}, &CredentialsError{Reason: "app ID is not set"}
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKey)
	if err != nil {
		return Credentials{}, &CredentialsError{Reason: "could not parse private key", Cause: err}
	}

	return Credentials{AppID: appID, PrivateKey: privateKey, key: key}, nil
}

// LoadCredentials sources the private key from the environment variable
// first and the key file second, in that preference order. Empty env and
// file arguments select the defaults. Missing material in both places is a
// CredentialsError.
func LoadCredentials(appID int64, env, file string) (Credentials, error) {
	if env == "" {
		env = DefaultPrivateKeyEnv
	}
	if file == "" {
		file = DefaultPrivateKeyFile
	}

	if v := os.Getenv(env); v != "" {
		return NewCredentials(appID, []byte(v))
	}

	pem, err := os.ReadFile(file)
	if err != nil {
		return Credentials{}, &CredentialsError{
			Reason: fmt.Sprintf("no %s environment value and no key file %s", env, file),
			Cause:  err,
		}
	}
	return NewCredentials(appID, pem)
}

// Assertion mints the short-lived signed JWT that identifies the app to
// GitHub during a token exchange.
func (c Credentials) Assertion(now time.Time) (string, error) {
	if c.key == nil {
		return "", &CredentialsError{Reason: "credentials were not constructed with a key"}
	}

	claims := &jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-assertionBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		Issuer:    strconv.FormatInt(c.AppID, 10),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign app assertion")
	}
	return signed, nil
}
