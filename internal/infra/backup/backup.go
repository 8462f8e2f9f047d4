// Package backup keeps a git history of the data directory. Every snapshot
// is one commit in a repository embedded alongside the data files, giving a
// manual recovery path (git checkout) that is independent of the store's own
// crash safety.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Files included in a snapshot, relative to the data directory.
var snapshotFiles = []string{"tasks.json", "syncstate.json", "config.toml"}

// Snapshotter commits data files into an embedded git repository.
type Snapshotter struct {
	dataDir string
}

// New creates a Snapshotter for the data directory.
func New(dataDir string) *Snapshotter {
	return &Snapshotter{dataDir: dataDir}
}

// Snapshot commits the current data files. Returns the commit hash, or ""
// when there was nothing new to commit.
func (s *Snapshotter) Snapshot(message string) (string, error) {
	repo, err := s.openOrInit()
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	added := 0
	for _, name := range snapshotFiles {
		if _, err := os.Stat(filepath.Join(s.dataDir, name)); err != nil {
			continue
		}
		if _, err := wt.Add(name); err != nil {
			return "", fmt.Errorf("stage %s: %w", name, err)
		}
		added++
	}
	if added == 0 {
		return "", nil
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		return "", nil
	}

	if message == "" {
		message = "snapshot"
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "taskdeck",
			Email: "taskdeck@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit snapshot: %w", err)
	}
	return hash.String(), nil
}

// SnapshotInfo describes one recorded snapshot.
type SnapshotInfo struct {
	When    time.Time
	Hash    string
	Message string
}

// List returns up to limit snapshots, newest first.
func (s *Snapshotter) List(limit int) ([]SnapshotInfo, error) {
	repo, err := git.PlainOpen(s.dataDir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("open snapshot repository: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("read snapshot log: %w", err)
	}
	defer iter.Close()

	var out []SnapshotInfo
	for len(out) < limit {
		c, err := iter.Next()
		if err != nil {
			break
		}
		out = append(out, SnapshotInfo{
			Hash:    c.Hash.String(),
			Message: c.Message,
			When:    c.Author.When,
		})
	}
	return out, nil
}

func (s *Snapshotter) openOrInit() (*git.Repository, error) {
	repo, err := git.PlainOpen(s.dataDir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open snapshot repository: %w", err)
	}
	repo, err = git.PlainInit(s.dataDir, false)
	if err != nil {
		return nil, fmt.Errorf("init snapshot repository: %w", err)
	}
	return repo, nil
}
