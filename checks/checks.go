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

// Package checks wraps the check-run lifecycle an app handler typically
// drives: start a run against a head SHA while work is in progress, then
// update it with a conclusion.
package checks

import (
	"context"

	"github.com/google/go-github/v65/github"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	StatusQueued     = "queued"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Runner manages one check run in one repository.
type Runner struct {
	client *github.Client
	owner  string
	repo   string
	run    *github.CheckRun
}

// NewRunner returns a runner bound to a repository.
func NewRunner(client *github.Client, owner, repo string) *Runner {
	return &Runner{client: client, owner: owner, repo: repo}
}

// StartOptions control the created check run. Zero values get defaults: the
// title falls back to the run name, the summary to empty, the status to
// in_progress.
type StartOptions struct {
	Title   string
	Summary string
	Text    string
	Status  string
}

// Start creates the check run against a head SHA.
func (r *Runner) Start(ctx context.Context, name, headSHA string, opts StartOptions) (*github.CheckRun, error) {
	if opts.Title == "" {
		opts.Title = name
	}
	if opts.Status == "" {
		opts.Status = StatusInProgress
	}

	output := &github.CheckRunOutput{
		Title:   github.String(opts.Title),
		Summary: github.String(opts.Summary),
	}
	if opts.Text != "" {
		output.Text = github.String(opts.Text)
	}

	zerolog.Ctx(ctx).Info().Msgf("Starting check run %q on %s/%s@%s", name, r.owner, r.repo, headSHA)

	run, _, err := r.client.Checks.CreateCheckRun(ctx, r.owner, r.repo, github.CreateCheckRunOptions{
		Name:    name,
		HeadSHA: headSHA,
		Status:  github.String(opts.Status),
		Output:  output,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create check run %q on %s/%s", name, r.owner, r.repo)
	}

	r.run = run
	return run, nil
}

// UpdateOptions control an update to a started check run. Setting Conclusion
// forces the status to completed. Title and Summary default to the run's
// current output values.
type UpdateOptions struct {
	Status     string
	Conclusion string
	Title      string
	Summary    string
	Text       string
}

// Update edits the check run started by this runner.
func (r *Runner) Update(ctx context.Context, opts UpdateOptions) (*github.CheckRun, error) {
	if r.run == nil {
		return nil, errors.New("no check run has been started")
	}

	update := github.UpdateCheckRunOptions{
		Name: r.run.GetName(),
	}

	if opts.Status != "" {
		update.Status = github.String(opts.Status)
	}
	if opts.Conclusion != "" {
		update.Conclusion = github.String(opts.Conclusion)
		update.Status = github.String(StatusCompleted)
	}

	if opts.Title != "" || opts.Summary != "" || opts.Text != "" {
		title := opts.Title
		if title == "" {
			title = r.run.GetOutput().GetTitle()
		}
		summary := opts.Summary
		if summary == "" {
			summary = r.run.GetOutput().GetSummary()
		}

		output := &github.CheckRunOutput{
			Title:   github.String(title),
			Summary: github.String(summary),
		}
		if opts.Text != "" {
			output.Text = github.String(opts.Text)
		}
		update.Output = output
	}

	zerolog.Ctx(ctx).Info().Msgf("Updating check run %q on %s/%s", update.Name, r.owner, r.repo)

	run, _, err := r.client.Checks.UpdateCheckRun(ctx, r.owner, r.repo, r.run.GetID(), update)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update check run %d on %s/%s", r.run.GetID(), r.owner, r.repo)
	}

	r.run = run
	return run, nil
}

// Run returns the most recent state of the managed check run, or nil before
// Start succeeds.
func (r *Runner) Run() *github.CheckRun {
	return r.run
}
