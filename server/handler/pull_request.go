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

import (
	"context"
	"encoding/json"

	"github.com/google/go-github/v65/github"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hooksmith/hooksmith/appconfig"
	"github.com/hooksmith/hooksmith/checks"
	"github.com/hooksmith/hooksmith/event"
	"github.com/hooksmith/hooksmith/githubapp"
)

// PullRequest acknowledges opened pull requests with a check run. It reads
// the repository's own configuration file for the check name, demonstrating
// the full path from classified event through lazy resources to API calls.
type PullRequest struct {
	Clients githubapp.ClientCreator
	Options *Options
}

func (h *PullRequest) Handle(ctx context.Context, evt *event.Event) error {
	logger := zerolog.Ctx(ctx)

	if evt.Repository == nil {
		logger.Debug().Msg("Ignoring pull request event without a repository")
		return nil
	}

	// the payload snapshot always includes name and owner, so this reads
	// without fetching
	repo, err := evt.Repository.Partial()
	if err != nil {
		return err
	}
	owner := repo.GetOwner().GetLogin()
	name := repo.GetName()

	headSHA, err := pullRequestHeadSHA(evt.Body)
	if err != nil {
		return err
	}

	client, err := h.Clients.NewInstallationClient(evt.Metadata.InstallationID)
	if err != nil {
		return errors.Wrap(err, "failed to create installation client")
	}

	cfg := appconfig.New()
	cfg.Define("checks.name", h.Options.CheckName)
	cfg.Define("checks.enabled", true)
	if err := cfg.LoadFromRepository(ctx, client, owner, name, h.Options.ConfigPath); err != nil {
		return err
	}

	if enabled, err := cfg.GetBool("checks.enabled"); err != nil || !enabled {
		logger.Info().Msgf("Checks are disabled for %s/%s", owner, name)
		return err
	}

	checkName, err := cfg.GetString("checks.name")
	if err != nil {
		return err
	}

	runner := checks.NewRunner(client, owner, name)
	if _, err := runner.Start(ctx, checkName, headSHA, checks.StartOptions{
		Summary: "Reviewing this pull request",
	}); err != nil {
		return err
	}

	_, err = runner.Update(ctx, checks.UpdateOptions{
		Conclusion: "neutral",
		Summary:    "Nothing to do for this pull request",
	})
	return err
}

// pullRequestHeadSHA digs the head SHA out of the raw payload. The embedded
// pull request is not one of the commonly-parsed sub-resources, so the demo
// reads it directly.
func pullRequestHeadSHA(body map[string]any) (string, error) {
	data, err := json.Marshal(body["pull_request"])
	if err != nil {
		return "", errors.Wrap(err, "failed to encode pull_request fragment")
	}

	var pr github.PullRequest
	if err := json.Unmarshal(data, &pr); err != nil {
		return "", errors.Wrap(err, "failed to parse pull_request fragment")
	}

	sha := pr.GetHead().GetSHA()
	if sha == "" {
		return "", errors.New("pull request payload has no head SHA")
	}
	return sha, nil
}
