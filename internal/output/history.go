package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"contentmark/internal/schema"
)

const (
	historyPrefix = "schema-"
	historySuffix = ".json.zst"
	historyStamp  = "20060102T150405.000Z"
)

// Entry is one stored snapshot.
type Entry struct {
	Name        string    `json:"name"`
	GeneratedAt time.Time `json:"generatedAt"`
	Size        int64     `json:"size"`
}

// History keeps the last Limit snapshots as zstd-compressed JSON files.
type History struct {
	dir   string
	limit int

	mu sync.Mutex
}

// NewHistory returns a history rooted at dir. A limit of zero or less
// disables recording.
func NewHistory(dir string, limit int) *History {
	return &History{dir: dir, limit: limit}
}

// Dir returns the history directory.
func (h *History) Dir() string {
	return h.dir
}

// Enabled reports whether Record stores anything.
func (h *History) Enabled() bool {
	return h.limit > 0
}

// Record stores snap and prunes the oldest entries beyond the limit.
func (h *History) Record(snap *schema.ProjectSchema) (Entry, error) {
	if !h.Enabled() {
		return Entry{}, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	raw, err := Encode(snap, FormatJSON, false)
	if err != nil {
		return Entry{}, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return Entry{}, fmt.Errorf("creating zstd encoder: %w", err)
	}
	compressed := enc.EncodeAll(raw, nil)
	_ = enc.Close()

	at, err := time.Parse(schema.TimeFormat, snap.GeneratedAt)
	if err != nil {
		at = time.Now()
	}
	at = at.UTC()

	name, err := h.nextName(at)
	if err != nil {
		return Entry{}, err
	}
	if err := WriteFileAtomic(filepath.Join(h.dir, name), compressed, 0o644); err != nil {
		return Entry{}, err
	}
	if _, err := h.prune(); err != nil {
		return Entry{}, err
	}

	return Entry{Name: name, GeneratedAt: at, Size: int64(len(compressed))}, nil
}

// nextName picks a name that sorts after every existing entry with the same
// timestamp.
func (h *History) nextName(at time.Time) (string, error) {
	stamp := at.Format(historyStamp)
	for seq := 0; seq < 1000; seq++ {
		name := fmt.Sprintf("%s%s-%03d%s", historyPrefix, stamp, seq, historySuffix)
		_, err := os.Stat(filepath.Join(h.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("too many history entries for %s", stamp)
}

// List returns the stored entries, newest first.
func (h *History) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(h.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, historyPrefix) || !strings.HasSuffix(name, historySuffix) {
			continue
		}
		e := Entry{Name: name}
		if info, err := de.Info(); err == nil {
			e.Size = info.Size()
		}
		e.GeneratedAt = parseEntryTime(name)
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name > entries[j].Name
	})
	return entries, nil
}

func parseEntryTime(name string) time.Time {
	stamp := strings.TrimPrefix(name, historyPrefix)
	if len(stamp) < len(historyStamp) {
		return time.Time{}
	}
	t, err := time.Parse(historyStamp, stamp[:len(historyStamp)])
	if err != nil {
		return time.Time{}
	}
	return t
}

// Read decompresses one entry by name.
func (h *History) Read(name string) (*schema.ProjectSchema, error) {
	if name != filepath.Base(name) || !strings.HasSuffix(name, historySuffix) {
		return nil, fmt.Errorf("invalid history entry %q", name)
	}
	data, err := os.ReadFile(filepath.Join(h.dir, name))
	if err != nil {
		return nil, fmt.Errorf("reading history entry: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", name, err)
	}
	return Decode(raw, FormatJSON)
}

// Latest returns the newest entry, or nil when the history is empty.
func (h *History) Latest() (*schema.ProjectSchema, error) {
	entries, err := h.List()
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return h.Read(entries[0].Name)
}

func (h *History) prune() (int, error) {
	entries, err := h.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := h.limit; i < len(entries); i++ {
		if err := os.Remove(filepath.Join(h.dir, entries[i].Name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("pruning history: %w", err)
		}
		removed++
	}
	return removed, nil
}
