package gitsource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Source fetches remote repositories into a local cache directory.
type Source struct {
	cacheDir string
	logger   *slog.Logger
}

// New returns a Source caching clones under cacheDir.
func New(cacheDir string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{cacheDir: cacheDir, logger: logger}
}

// LocalPath returns the checkout directory used for url.
func (s *Source) LocalPath(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return filepath.Join(s.cacheDir, hex.EncodeToString(sum[:8]))
}

// Sync clones a git repository if it doesn't exist locally,
// or pulls the latest changes if it does. It returns the checkout path.
func (s *Source) Sync(ctx context.Context, url string) (string, error) {
	localPath := s.LocalPath(url)
	_, err := os.Stat(localPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("cloning repository", "url", url, "path", localPath)
		if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create cache dir %s: %w", s.cacheDir, err)
		}
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:   url,
			Depth: 1,
		})
		if err != nil {
			os.RemoveAll(localPath)
			return "", fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
	case err == nil:
		s.logger.Info("pulling repository", "url", url, "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return "", fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return "", fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}
		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return "", fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
	default:
		return "", fmt.Errorf("error checking path %s: %w", localPath, err)
	}
	return localPath, nil
}

// noteExtensions are the files whose contents count as study material.
var noteExtensions = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// CollectText concatenates every note file under root in lexical path order.
// Markdown is reduced to plain text. The .git directory is skipped.
func CollectText(root string) (string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if noteExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("error walking directory %s: %w", root, err)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("error reading %s: %w", path, err)
		}
		text := strings.TrimSpace(string(data))
		if ext := strings.ToLower(filepath.Ext(path)); ext == ".md" || ext == ".markdown" {
			text = plainText(data)
		}
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
