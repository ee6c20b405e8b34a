package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/amansearch/internal/catalog"
	"github.com/Aman-CERP/amansearch/internal/engine"
)

// CheckIndexRoot checks that root exists, creating it if needed, and that
// files can be created in it.
func (c *Checker) CheckIndexRoot(root string) CheckResult {
	result := CheckResult{
		Name:     "index_root",
		Required: true,
		Details:  root,
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create: %v", err)
		return result
	}

	f, err := os.CreateTemp(root, ".amansearch-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(f.Name())

	result.Status = StatusPass
	result.Message = "writable"
	return result
}

// CheckCatalog opens the catalog under root and returns the index names it
// records. A root without a catalog passes.
func (c *Checker) CheckCatalog(ctx context.Context, root string) (CheckResult, []string) {
	result := CheckResult{
		Name:     "catalog",
		Required: true,
	}

	path := filepath.Join(root, catalog.FileName)
	result.Details = path
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		result.Status = StatusPass
		result.Message = "not created yet"
		return result, nil
	}

	cat, err := catalog.Open(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot open: %v", err)
		return result, nil
	}
	defer func() { _ = cat.Close() }()

	entries, err := cat.List(ctx)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read: %v", err)
		return result, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d indexes", len(names))
	return result, names
}

// CheckLocks probes the directory lock of every named index. Held locks
// and missing directories are warnings.
func (c *Checker) CheckLocks(root string, names []string) CheckResult {
	result := CheckResult{
		Name:     "index_locks",
		Required: false,
	}

	var locked, missing []string
	for _, name := range names {
		dir := filepath.Join(root, name)
		if _, err := os.Stat(dir); err != nil {
			missing = append(missing, name)
			continue
		}
		lock := flock.New(engine.LockPath(dir))
		ok, err := lock.TryLock()
		if err != nil || !ok {
			locked = append(locked, name)
			continue
		}
		_ = lock.Unlock()
	}

	switch {
	case len(locked) > 0:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d of %d indexes in use", len(locked), len(names))
		result.Details = "locked: " + strings.Join(locked, ", ")
	case len(missing) > 0:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d of %d index directories missing", len(missing), len(names))
		result.Details = "missing: " + strings.Join(missing, ", ")
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%d indexes free", len(names))
	}
	return result
}
