package releaser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/difytools/plugin-releaser/internal/logger"
)

const (
	// lockFilename marks a packaging run in progress to avoid two runs
	// writing archives into the same tree at once.
	lockFilename = ".plugin-releaser.lock"

	// lockLifetime is the period after which a lock is considered stale
	// even when its owner cannot be checked.
	lockLifetime = 10 * time.Minute

	// lockFileMode keeps the lock readable so operators can see the owner pid.
	lockFileMode os.FileMode = 0o644
)

// errReleaseInProgress indicates another packaging run holds the lock.
var errReleaseInProgress = errors.New("another packaging run is in progress")

// acquireLock claims the packaging lock in the given tree. A fresh lock held
// by a live process aborts the run; a stale one is recovered. The returned
// function releases the lock.
func acquireLock(ctx context.Context, root string) (func(), error) {
	path := filepath.Join(root, lockFilename)

	if err := reclaimStaleLock(ctx, path); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errReleaseInProgress
		}

		return nil, fmt.Errorf("create lock: %w", err)
	}

	_, err = file.WriteString(strconv.Itoa(os.Getpid()))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path) //nolint:errcheck // Best-effort cleanup of a half-written lock.

		return nil, fmt.Errorf("write lock: %w", err)
	}

	release := func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to remove packaging lock", "path", path, "error", err)
		}
	}

	return release, nil
}

// reclaimStaleLock removes an existing lock when its owning process is gone
// or the lock is older than lockLifetime. A live fresh lock is left alone.
func reclaimStaleLock(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("stat lock: %w", err)
	}

	if ownerAlive(path) && time.Since(info.ModTime()) <= lockLifetime {
		return errReleaseInProgress
	}

	logger.InfoKV(ctx, "Removing stale packaging lock", "path", path)

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale lock: %w", err)
	}

	return nil
}

// ownerAlive reports whether the pid recorded in the lock still maps to a
// running process. Unreadable or malformed locks count as dead owners.
func ownerAlive(path string) bool {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		// Process listing failed; assume the owner is alive rather than
		// yanking a lock out from under a running packaging job.
		return true
	}

	return process != nil
}
