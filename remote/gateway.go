/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package remote persists the scoreboard document as a single file in a
// GitHub repository, using the file's blob sha as the revision token.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/rs/zerolog/log"
)

var (
	ErrRemoteRead  = errors.New("remote read failed")
	ErrRemoteWrite = errors.New("remote write failed")

	// ErrConflict is returned alongside ErrRemoteWrite when the store rejected
	// the revision sent with a conditional overwrite.
	ErrConflict = errors.New("revision conflict")
)

const userAgent = "score-tracker-app"

// Config identifies the remote file and the identity commits are made as.
type Config struct {
	Owner          string
	Repo           string
	Path           string
	Token          string
	CommitterName  string
	CommitterEmail string

	// BaseURL overrides the API root, for GitHub Enterprise.
	BaseURL string
	Timeout time.Duration
}

// Missing returns the names of required settings that are empty.
func (c Config) Missing() []string {
	var missing []string

	for _, f := range []struct {
		name, value string
	}{
		{"github-owner", c.Owner},
		{"github-repo", c.Repo},
		{"github-path", c.Path},
		{"github-token", c.Token},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	return missing
}

type Gateway struct {
	client *github.Client
	cfg    Config
}

func NewGateway(cfg Config) (*Gateway, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	client := github.NewClient(httpClient)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	client.UserAgent = userAgent

	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github api url %q: %w", cfg.BaseURL, err)
		}
		client.BaseURL = u
	}

	return &Gateway{client: client, cfg: cfg}, nil
}

// ReadDocument returns the current file content and its revision. A file
// that does not exist yet is reported as empty content with no revision.
func (g *Gateway) ReadDocument(ctx context.Context) ([]byte, string, error) {
	file, _, resp, err := g.client.Repositories.GetContents(ctx, g.cfg.Owner, g.cfg.Repo, g.cfg.Path, nil)
	if isNotFound(resp) {
		log.Debug().Str("path", g.cfg.Path).Msg("remote document does not exist yet")

		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrRemoteRead, err)
	}
	if file == nil {
		return nil, "", fmt.Errorf("%w: %s is a directory", ErrRemoteRead, g.cfg.Path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrRemoteRead, err)
	}

	return []byte(content), file.GetSHA(), nil
}

// WriteDocument overwrites the file with content. The revision is fetched
// immediately before the write and is omitted when the file does not exist.
func (g *Gateway) WriteDocument(ctx context.Context, content []byte, message string) (string, error) {
	sha, err := g.revision(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRemoteWrite, err)
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Committer: &github.CommitAuthor{
			Name:  github.String(g.cfg.CommitterName),
			Email: github.String(g.cfg.CommitterEmail),
		},
	}
	if sha != "" {
		opts.SHA = github.String(sha)
	}

	result, resp, err := g.client.Repositories.UpdateFile(ctx, g.cfg.Owner, g.cfg.Repo, g.cfg.Path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return "", fmt.Errorf("%w: %w: %w", ErrRemoteWrite, ErrConflict, err)
		}

		return "", fmt.Errorf("%w: %w", ErrRemoteWrite, err)
	}

	revision := result.GetContent().GetSHA()

	log.Debug().
		Str("path", g.cfg.Path).
		Str("previous", sha).
		Str("revision", revision).
		Str("message", message).
		Msg("remote document written")

	return revision, nil
}

func (g *Gateway) revision(ctx context.Context) (string, error) {
	file, _, resp, err := g.client.Repositories.GetContents(ctx, g.cfg.Owner, g.cfg.Repo, g.cfg.Path, nil)
	if isNotFound(resp) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetch revision: %w", err)
	}

	return file.GetSHA(), nil
}

func isNotFound(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}
