package log

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	filePrefix = "clanbot-"
	fileSuffix = ".log"
	dateLayout = "2006-01-02"

	// DefaultRetention is how long daily log files are kept.
	DefaultRetention = 14 * 24 * time.Hour
)

// DailyFile is a zapcore.WriteSyncer that writes to clanbot-YYYY-MM-DD.log
// and switches files when the local date changes.
type DailyFile struct {
	mu   sync.Mutex
	dir  string
	day  string
	file *os.File
	now  func() time.Time
}

// NewDailyFile creates the log directory and opens today's file.
func NewDailyFile(dir string) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	d := &DailyFile{dir: dir, now: time.Now}
	if err := d.rotate(); err != nil {
		return nil, err
	}
	return d, nil
}

// FileName returns the log file name for the given day.
func FileName(t time.Time) string {
	return filePrefix + t.Format(dateLayout) + fileSuffix
}

func (d *DailyFile) rotate() error {
	day := d.now().Format(dateLayout)
	if d.file != nil && day == d.day {
		return nil
	}
	path := filepath.Join(d.dir, filePrefix+day+fileSuffix)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640) //nolint:gosec // G304: path built from configured log dir
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	if d.file != nil {
		_ = d.file.Close()
	}
	d.file = f
	d.day = day
	return nil
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.rotate(); err != nil {
		return 0, err
	}
	return d.file.Write(p)
}

func (d *DailyFile) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	return d.file.Sync()
}

func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// PruneOld removes daily log files whose date is older than retention.
// Files that do not follow the naming scheme are left alone.
func PruneOld(dir string, retention time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading log directory: %w", err)
	}

	cutoff := now.Add(-retention)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		day, err := time.ParseInLocation(dateLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), now.Location())
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				Warn(CatConfig, "Failed to remove old log file", "file", name, "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// RunRetention prunes old log files now and then every interval until ctx
// is cancelled.
func RunRetention(ctx context.Context, dir string, retention, interval time.Duration) {
	prune := func() {
		n, err := PruneOld(dir, retention, time.Now())
		if err != nil {
			ErrorErr(CatConfig, "Log retention sweep failed", err, "dir", dir)
			return
		}
		if n > 0 {
			Info(CatConfig, "Removed old log files", "count", n)
		}
	}

	prune()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
