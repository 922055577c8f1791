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

package appconfig

import (
	"context"
	"net/http"

	"github.com/google/go-github/v65/github"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// LoadFromRepository merges a YAML config file from the repository's default
// branch over the tree. A repository without the file keeps the registered
// defaults; that is not an error.
func (v *Value) LoadFromRepository(ctx context.Context, client *github.Client, owner, repo, path string) error {
	logger := zerolog.Ctx(ctx)

	repository, _, err := client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return errors.Wrapf(err, "failed to get repository %s/%s", owner, repo)
	}

	opts := &github.RepositoryContentGetOptions{Ref: repository.GetDefaultBranch()}
	file, _, _, err := client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		if rerr, ok := err.(*github.ErrorResponse); ok && rerr.Response.StatusCode == http.StatusNotFound {
			logger.Debug().Msgf("No config found at %s in %s/%s, using defaults", path, owner, repo)
			return nil
		}
		return errors.Wrapf(err, "failed to fetch config %s from %s/%s", path, owner, repo)
	}

	content, err := file.GetContent()
	if err != nil {
		return errors.Wrapf(err, "failed to decode config %s from %s/%s", path, owner, repo)
	}

	logger.Debug().Msgf("Loaded config from %s in %s/%s", path, owner, repo)
	return v.LoadYAML([]byte(content))
}
