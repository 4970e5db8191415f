// Copyright (c) 2024 santosr2
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package registryset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// GitFetcher retrieves individual file blobs out of a remote git registry
// repository at a pinned commit, over HTTPS, without requiring a local git
// checkout. It targets GitHub's raw-content endpoint, the same one most
// vcpkg-style registries are hosted behind.
type GitFetcher struct {
	client     *http.Client
	repository string
	reference  string
	token      string
}

// NewGitFetcher builds a fetcher for one registry repository.
func NewGitFetcher(repository, reference string) *GitFetcher {
	return &GitFetcher{
		client:     &http.Client{Timeout: 30 * time.Second},
		repository: repository,
		reference:  reference,
		token:      os.Getenv("PORTMAN_GIT_TOKEN"),
	}
}

// rawBaseURL converts a "https://github.com/owner/repo(.git)?" repository
// URL into its raw-content host.
func rawBaseURL(repository string) (string, error) {
	repo := strings.TrimSuffix(repository, ".git")
	repo = strings.TrimPrefix(repo, "https://")
	repo = strings.TrimPrefix(repo, "http://")
	repo = strings.TrimPrefix(repo, "github.com/")
	if repo == "" {
		return "", fmt.Errorf("invalid git registry repository %q", repository)
	}
	return "https://raw.githubusercontent.com/" + repo, nil
}

// FetchAt retrieves one file's content at a specific commit-ish.
func (f *GitFetcher) FetchAt(ctx context.Context, commitish, relPath string) ([]byte, error) {
	base, err := rawBaseURL(f.repository)
	if err != nil {
		return nil, err
	}
	if commitish == "" {
		commitish = f.reference
	}
	url := fmt.Sprintf("%s/%s/%s", base, commitish, relPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("not found in registry %s@%s: %s", f.repository, commitish, relPath)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
