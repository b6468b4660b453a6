package localfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

// DefaultPatterns are the report files picked up from the inbox directory.
var DefaultPatterns = []string{"*.csv", "*.xls", "*.xlsx", "*.pdf"}

// Inbox lists report files in a flat directory. Patterns match case-insensitively.
type Inbox struct {
	dir      string
	patterns []string
	logger   *slog.Logger
}

func NewInbox(dir string, patterns []string, logger *slog.Logger) (*Inbox, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "./data"
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "inbox pattern", fmt.Errorf("%q: %w", p, err))
		}
		lowered = append(lowered, p)
	}
	return &Inbox{dir: dir, patterns: lowered, logger: logger}, nil
}

func (i *Inbox) Dir() string { return i.dir }

// List returns matching regular files sorted by path. A missing directory lists as empty.
func (i *Inbox) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(i.dir)
	if err != nil {
		if os.IsNotExist(err) {
			i.logger.Warn("inbox directory not found", "dir", i.dir)
			return []string{}, nil
		}
		return nil, fmt.Errorf("read inbox dir: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if i.matches(entry.Name()) {
			paths = append(paths, filepath.Join(i.dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (i *Inbox) Stat(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}
	return info.Size(), nil
}

func (i *Inbox) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range i.patterns {
		if ok, _ := filepath.Match(p, lower); ok {
			return true
		}
	}
	return false
}
