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

package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
server:
  address: "127.0.0.1"
  port: 8080

logging:
  level: debug
  text: true

cache:
  max_size: 10485760

github:
  web_url: "https://github.com"
  v3_api_url: "https://api.github.com/"
  app:
    integration_id: 42
    webhook_secret: "hunter2"

options:
  app_name: "hooksmith-test"
  config_path: ".github/hooksmith.yml"
`

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(testConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "debug", c.Logging.Level)
	assert.True(t, c.Logging.Text)
	assert.Equal(t, int64(10*1024*1024), int64(c.Cache.MaxSize))
	assert.Equal(t, int64(42), c.Github.App.IntegrationID)
	assert.Equal(t, "hunter2", c.Github.App.WebhookSecret)
	assert.Equal(t, "hooksmith-test", c.Options.AppName)
	assert.Equal(t, ".github/hooksmith.yml", c.Options.ConfigPath)
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig([]byte("bogus_key: true\n"))
	assert.Error(t, err)
}

func TestParseConfigEnvOverrides(t *testing.T) {
	t.Setenv("HOOKSMITH_OPTIONS_APP_NAME", "from-env")
	t.Setenv("HOOKSMITH_LOG_LEVEL", "warn")
	t.Setenv("GITHUB_APP_WEBHOOK_SECRET", "env-secret")

	c, err := ParseConfig([]byte(testConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", c.Options.AppName)
	assert.Equal(t, "warn", c.Logging.Level)
	assert.Equal(t, "env-secret", c.Github.App.WebhookSecret)
}
