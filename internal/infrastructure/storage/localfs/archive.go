package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archiver moves processed files into <dir>/<YYYY-MM>/, never overwriting an earlier copy.
type Archiver struct {
	dir string
	now func() time.Time
}

func NewArchiver(dir string) (*Archiver, error) {
	if dir == "" {
		dir = "./data/archive"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Archiver{dir: dir, now: time.Now}, nil
}

func (a *Archiver) Archive(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sub := filepath.Join(a.dir, a.now().Format("2006-01"))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", fmt.Errorf("create archive month dir: %w", err)
	}

	dest, err := freeName(sub, filepath.Base(path))
	if err != nil {
		return "", err
	}
	if err := moveFile(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// freeName appends _1, _2, ... to the stem until the name is unused.
func freeName(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := filepath.Join(dir, name)
	for n := 1; ; n++ {
		_, err := os.Lstat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat archive target: %w", err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}
}

func moveFile(src, dest string) error {
	renameErr := os.Rename(src, dest)
	if renameErr == nil {
		return nil
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("move file: %w", renameErr)
	}

	// Rename fails across filesystems; fall back to copy and remove.
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open archive source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create archive copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("copy archive file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("close archive copy: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove archived source: %w", err)
	}
	return nil
}
