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
	"os"
	"strconv"
)

const (
	DefaultWebURL   = "https://github.com"
	DefaultV3APIURL = "https://api.github.com/"
	DefaultV4APIURL = "https://api.github.com/graphql"
)

// Config holds the deployment-level settings for one GitHub App.
type Config struct {
	WebURL   string `yaml:"web_url" json:"webUrl"`
	V3APIURL string `yaml:"v3_api_url" json:"v3ApiUrl"`
	V4APIURL string `yaml:"v4_api_url" json:"v4ApiUrl"`

	App struct {
		IntegrationID int64  `yaml:"integration_id" json:"integrationId"`
		WebhookSecret string `yaml:"webhook_secret" json:"webhookSecret"`

		// PrivateKey embeds the key PEM directly; when empty, credentials
		// come from PrivateKeyEnv / PrivateKeyFile (or their defaults).
		PrivateKey     string `yaml:"private_key" json:"privateKey"`
		PrivateKeyEnv  string `yaml:"private_key_env" json:"privateKeyEnv"`
		PrivateKeyFile string `yaml:"private_key_file" json:"privateKeyFile"`
	} `yaml:"app" json:"app"`
}

// FillDefaults sets the API URLs to the public github.com values when unset.
func (c *Config) FillDefaults() {
	if c.WebURL == "" {
		c.WebURL = DefaultWebURL
	}
	if c.V3APIURL == "" {
		c.V3APIURL = DefaultV3APIURL
	}
	if c.V4APIURL == "" {
		c.V4APIURL = DefaultV4APIURL
	}
}

// SetValuesFromEnv sets values in the configuration from corresponding
// environment variables, if they exist. The optional prefix is added to the
// start of the environment variable names.
func (c *Config) SetValuesFromEnv(prefix string) {
	setStringFromEnv("GITHUB_WEB_URL", prefix, &c.WebURL)
	setStringFromEnv("GITHUB_V3_API_URL", prefix, &c.V3APIURL)
	setStringFromEnv("GITHUB_V4_API_URL", prefix, &c.V4APIURL)

	setInt64FromEnv("GITHUB_APP_INTEGRATION_ID", prefix, &c.App.IntegrationID)
	setStringFromEnv("GITHUB_APP_WEBHOOK_SECRET", prefix, &c.App.WebhookSecret)
	setStringFromEnv("GITHUB_APP_PRIVATE_KEY", prefix, &c.App.PrivateKey)
	setStringFromEnv("GITHUB_APP_PRIVATE_KEY_FILE", prefix, &c.App.PrivateKeyFile)
}

// Credentials resolves the app's credentials from the configuration: the
// embedded key when present, otherwise the environment/file fallback chain.
func (c *Config) Credentials() (Credentials, error) {
	if c.App.PrivateKey != "" {
		return NewCredentials(c.App.IntegrationID, []byte(c.App.PrivateKey))
	}
	return LoadCredentials(c.App.IntegrationID, c.App.PrivateKeyEnv, c.App.PrivateKeyFile)
}

func setStringFromEnv(key, prefix string, value *string) {
	if v, ok := os.LookupEnv(prefix + key); ok {
		*value = v
	}
}

func setInt64FromEnv(key, prefix string, value *int64) {
	if v, ok := os.LookupEnv(prefix + key); ok {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			*value = i
		}
	}
}
