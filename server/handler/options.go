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

package handler

import "os"

const (
	DefaultAppName    = "hooksmith"
	DefaultConfigPath = ".hooksmith.yml"
	DefaultCheckName  = "hooksmith"
)

// Options configure the example webhook handlers.
type Options struct {
	AppName string `yaml:"app_name"`

	// ConfigPath is the repository-relative path of the per-repo YAML
	// configuration read on each delivery.
	ConfigPath string `yaml:"config_path"`

	// CheckName is the default name for check runs the demo handler starts;
	// per-repo configuration may override it.
	CheckName string `yaml:"check_name"`
}

func (o *Options) FillDefaults() {
	if o.AppName == "" {
		o.AppName = DefaultAppName
	}
	if o.ConfigPath == "" {
		o.ConfigPath = DefaultConfigPath
	}
	if o.CheckName == "" {
		o.CheckName = DefaultCheckName
	}
}

func (o *Options) SetValuesFromEnv(prefix string) {
	if v, ok := os.LookupEnv(prefix + "APP_NAME"); ok {
		o.AppName = v
	}
	if v, ok := os.LookupEnv(prefix + "CONFIG_PATH"); ok {
		o.ConfigPath = v
	}
	if v, ok := os.LookupEnv(prefix + "CHECK_NAME"); ok {
		o.CheckName = v
	}
}
