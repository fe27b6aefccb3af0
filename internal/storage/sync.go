package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	cmerrors "contentmark/internal/errors"
	"contentmark/internal/schema"
)

// SyncOptions controls SyncSchema.
type SyncOptions struct {
	// DeleteRemoved deletes rows whose page, section or field is no longer
	// in the snapshot. Otherwise they are left in place.
	DeleteRemoved bool
	// Verbose logs every row change at info level.
	Verbose bool
}

// Counts tallies row changes of one table.
type Counts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// Changed reports whether any row was written.
func (c Counts) Changed() bool {
	return c.Created+c.Updated+c.Deleted > 0
}

// SyncResult summarizes one SyncSchema call.
type SyncResult struct {
	Pages    Counts        `json:"pages"`
	Sections Counts        `json:"sections"`
	Fields   Counts        `json:"fields"`
	Duration time.Duration `json:"duration"`
}

// Changed reports whether any table was written.
func (r *SyncResult) Changed() bool {
	return r.Pages.Changed() || r.Sections.Changed() || r.Fields.Changed()
}

type syncer struct {
	ctx  context.Context
	tx   *Tx
	now  string
	opts SyncOptions
	log  func(msg string, args ...any)
}

// SyncSchema upserts every page, section and field of snap in one
// transaction. Rows are matched by slug or path; a content hash tells updated
// rows from unchanged ones.
func SyncSchema(ctx context.Context, db *DB, snap *schema.ProjectSchema, opts SyncOptions) (*SyncResult, error) {
	if snap == nil {
		return nil, cmerrors.New(cmerrors.SyncFailed, "no schema to sync", nil)
	}
	started := time.Now()

	logFn := db.logger.Debug
	if opts.Verbose {
		logFn = db.logger.Info
	}

	result := &SyncResult{}
	err := db.WithTx(ctx, func(tx *Tx) error {
		s := &syncer{
			ctx:  ctx,
			tx:   tx,
			now:  started.UTC().Format(time.RFC3339),
			opts: opts,
			log:  logFn,
		}
		var err error
		if result.Pages, err = s.syncPages(snap.Pages); err != nil {
			return err
		}
		if result.Sections, err = s.syncSections(snap.Pages); err != nil {
			return err
		}
		if result.Fields, err = s.syncFields(snap.Pages); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, cmerrors.New(cmerrors.SyncFailed, "schema sync failed", err)
	}

	result.Duration = time.Since(started)
	db.logger.Info("Synced schema to database",
		slog.Group("pages", "created", result.Pages.Created, "updated", result.Pages.Updated, "deleted", result.Pages.Deleted),
		slog.Group("sections", "created", result.Sections.Created, "updated", result.Sections.Updated, "deleted", result.Sections.Deleted),
		slog.Group("fields", "created", result.Fields.Created, "updated", result.Fields.Updated, "deleted", result.Fields.Deleted),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// existing loads key -> content hash for one table.
func (s *syncer) existing(query string) (map[string]string, error) {
	rows, err := s.tx.QueryContext(s.ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, hash string
		if err := rows.Scan(&key, &hash); err != nil {
			return nil, err
		}
		out[key] = hash
	}
	return out, rows.Err()
}

func (s *syncer) syncPages(pages []schema.PageSchema) (Counts, error) {
	var c Counts
	have, err := s.existing("SELECT slug, content_hash FROM cms_pages")
	if err != nil {
		return c, fmt.Errorf("loading pages: %w", err)
	}

	for _, p := range pages {
		sources, err := json.Marshal(p.SourceFiles)
		if err != nil {
			return c, err
		}
		hash := hashOf(p.Name, p.FieldCount, string(sources))
		prev, ok := have[p.Slug]
		delete(have, p.Slug)

		switch {
		case !ok:
			_, err = s.tx.ExecContext(s.ctx,
				`INSERT INTO cms_pages (id, slug, name, field_count, source_files, content_hash, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), p.Slug, p.Name, p.FieldCount, string(sources), hash, s.now, s.now)
			c.Created++
			s.log("Created page", "slug", p.Slug)
		case prev != hash:
			_, err = s.tx.ExecContext(s.ctx,
				`UPDATE cms_pages SET name = ?, field_count = ?, source_files = ?, content_hash = ?, updated_at = ?
				 WHERE slug = ?`,
				p.Name, p.FieldCount, string(sources), hash, s.now, p.Slug)
			c.Updated++
			s.log("Updated page", "slug", p.Slug)
		default:
			c.Unchanged++
		}
		if err != nil {
			return c, fmt.Errorf("writing page %s: %w", p.Slug, err)
		}
	}

	if s.opts.DeleteRemoved {
		for slug := range have {
			if _, err := s.tx.ExecContext(s.ctx, "DELETE FROM cms_pages WHERE slug = ?", slug); err != nil {
				return c, fmt.Errorf("deleting page %s: %w", slug, err)
			}
			c.Deleted++
			s.log("Deleted page", "slug", slug)
		}
	}
	return c, nil
}

func (s *syncer) syncSections(pages []schema.PageSchema) (Counts, error) {
	var c Counts
	have, err := s.existing("SELECT page_slug || '.' || slug, content_hash FROM cms_sections")
	if err != nil {
		return c, fmt.Errorf("loading sections: %w", err)
	}

	for _, p := range pages {
		for _, sec := range p.Sections {
			key := p.Slug + "." + sec.Slug
			var repeater interface{}
			if sec.RepeaterConfig != nil {
				raw, err := json.Marshal(sec.RepeaterConfig)
				if err != nil {
					return c, err
				}
				repeater = string(raw)
			}
			hash := hashOf(sec.Name, sec.IsRepeater, sec.RepeaterConfig, sec.Order)
			prev, ok := have[key]
			delete(have, key)

			switch {
			case !ok:
				_, err = s.tx.ExecContext(s.ctx,
					`INSERT INTO cms_sections (id, page_slug, slug, name, is_repeater, repeater_config, sort_order, content_hash, created_at, updated_at)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					uuid.NewString(), p.Slug, sec.Slug, sec.Name, boolInt(sec.IsRepeater), repeater, sec.Order, hash, s.now, s.now)
				c.Created++
				s.log("Created section", "section", key)
			case prev != hash:
				_, err = s.tx.ExecContext(s.ctx,
					`UPDATE cms_sections SET name = ?, is_repeater = ?, repeater_config = ?, sort_order = ?, content_hash = ?, updated_at = ?
					 WHERE page_slug = ? AND slug = ?`,
					sec.Name, boolInt(sec.IsRepeater), repeater, sec.Order, hash, s.now, p.Slug, sec.Slug)
				c.Updated++
				s.log("Updated section", "section", key)
			default:
				c.Unchanged++
			}
			if err != nil {
				return c, fmt.Errorf("writing section %s: %w", key, err)
			}
		}
	}

	if s.opts.DeleteRemoved {
		for key := range have {
			if _, err := s.tx.ExecContext(s.ctx,
				"DELETE FROM cms_sections WHERE page_slug || '.' || slug = ?", key); err != nil {
				return c, fmt.Errorf("deleting section %s: %w", key, err)
			}
			c.Deleted++
			s.log("Deleted section", "section", key)
		}
	}
	return c, nil
}

func (s *syncer) syncFields(pages []schema.PageSchema) (Counts, error) {
	var c Counts
	have, err := s.existing("SELECT path, content_hash FROM cms_fields")
	if err != nil {
		return c, fmt.Errorf("loading fields: %w", err)
	}

	for _, p := range pages {
		for _, sec := range p.Sections {
			for i, f := range sec.Fields {
				def, err := json.Marshal(f)
				if err != nil {
					return c, err
				}
				hash := hashOf(string(def), i)
				prev, ok := have[f.Path]
				delete(have, f.Path)

				switch {
				case !ok:
					_, err = s.tx.ExecContext(s.ctx,
						`INSERT INTO cms_fields (id, path, page_slug, section_slug, name, type, label, required, definition, sort_order, content_hash, created_at, updated_at)
						 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
						uuid.NewString(), f.Path, p.Slug, sec.Slug, f.Name, string(f.Type), f.Label, boolInt(f.Required),
						string(def), i, hash, s.now, s.now)
					c.Created++
					s.log("Created field", "path", f.Path)
				case prev != hash:
					_, err = s.tx.ExecContext(s.ctx,
						`UPDATE cms_fields SET page_slug = ?, section_slug = ?, name = ?, type = ?, label = ?, required = ?,
						 definition = ?, sort_order = ?, content_hash = ?, updated_at = ?
						 WHERE path = ?`,
						p.Slug, sec.Slug, f.Name, string(f.Type), f.Label, boolInt(f.Required),
						string(def), i, hash, s.now, f.Path)
					c.Updated++
					s.log("Updated field", "path", f.Path)
				default:
					c.Unchanged++
				}
				if err != nil {
					return c, fmt.Errorf("writing field %s: %w", f.Path, err)
				}
			}
		}
	}

	if s.opts.DeleteRemoved {
		for path := range have {
			if _, err := s.tx.ExecContext(s.ctx, "DELETE FROM cms_fields WHERE path = ?", path); err != nil {
				return c, fmt.Errorf("deleting field %s: %w", path, err)
			}
			c.Deleted++
			s.log("Deleted field", "path", path)
		}
	}
	return c, nil
}

// hashOf returns a hex BLAKE2b-256 digest of the JSON encoding of parts.
func hashOf(parts ...interface{}) string {
	data, err := json.Marshal(parts)
	if err != nil {
		data = []byte(fmt.Sprint(parts...))
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// FieldRow is one stored field definition.
type FieldRow struct {
	Path      string
	Page      string
	Section   string
	Type      string
	Label     string
	Required  bool
	UpdatedAt string
}

// ListFields returns the stored fields ordered by path.
func ListFields(ctx context.Context, db *DB) ([]FieldRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT path, page_slug, section_slug, type, label, required, updated_at
		 FROM cms_fields ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FieldRow
	for rows.Next() {
		var r FieldRow
		var required int
		if err := rows.Scan(&r.Path, &r.Page, &r.Section, &r.Type, &r.Label, &required, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Required = required != 0
		out = append(out, r)
	}
	return out, rows.Err()
}
