package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		statements := []string{
			`CREATE TABLE books (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				author TEXT,
				summary TEXT,
				cover_path TEXT,
				source_path TEXT NOT NULL DEFAULT '',
				page_count INTEGER NOT NULL DEFAULT 0,
				guest_preview_limit INTEGER NOT NULL DEFAULT 5,
				user_preview_limit INTEGER NOT NULL DEFAULT 10,
				process_status TEXT NOT NULL DEFAULT 'pending',
				remark TEXT,
				list_price_cents INTEGER,
				sale_price_cents INTEGER,
				owner_id TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE chapters (
				id TEXT PRIMARY KEY,
				book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
				parent_id TEXT REFERENCES chapters(id),
				title TEXT NOT NULL,
				from_page_no INTEGER NOT NULL,
				to_page_no INTEGER NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX ix_chapters_book_id ON chapters(book_id)`,
			`CREATE TABLE pages (
				id TEXT PRIMARY KEY,
				book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
				page_no INTEGER NOT NULL,
				image_path TEXT NOT NULL DEFAULT '',
				crop_image_path TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL DEFAULT '',
				crop_box TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (book_id, page_no)
			)`,
			`CREATE TABLE chapter_pages (
				id TEXT PRIMARY KEY,
				chapter_id TEXT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
				page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (chapter_id, page_id)
			)`,
			`CREATE TABLE terms (
				id TEXT PRIMARY KEY,
				book_id TEXT REFERENCES books(id) ON DELETE CASCADE,
				source_type TEXT NOT NULL DEFAULT 'manual',
				key TEXT NOT NULL,
				explanation TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (book_id, key)
			)`,
			// UNIQUE (book_id, key) does not cover global terms: SQLite
			// treats every NULL book_id as distinct.
			`CREATE UNIQUE INDEX ux_terms_global_key ON terms(key) WHERE book_id IS NULL`,
			`CREATE TABLE page_terms (
				id TEXT PRIMARY KEY,
				book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
				page_no INTEGER NOT NULL,
				term_id TEXT NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
				key TEXT NOT NULL,
				explanation TEXT NOT NULL DEFAULT '',
				rects TEXT NOT NULL DEFAULT '[]',
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX ix_page_terms_book_page ON page_terms(book_id, page_no)`,
			`CREATE TABLE book_users (
				id TEXT PRIMARY KEY,
				book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
				user_id TEXT NOT NULL,
				purchase_status TEXT NOT NULL DEFAULT 'none',
				last_read_page_no INTEGER,
				last_read_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (book_id, user_id)
			)`,
			`CREATE TABLE notes (
				id TEXT PRIMARY KEY,
				book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
				user_id TEXT NOT NULL,
				page_no INTEGER NOT NULL,
				content TEXT NOT NULL DEFAULT '',
				highlight_rects TEXT NOT NULL DEFAULT '[]',
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX ix_notes_book_user ON notes(book_id, user_id)`,
			`CREATE TABLE jobs (
				id TEXT PRIMARY KEY,
				type TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				data TEXT NOT NULL DEFAULT '{}',
				progress INTEGER NOT NULL DEFAULT 0,
				message TEXT NOT NULL DEFAULT '',
				process_id TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX ix_jobs_status ON jobs(status, created_at)`,
		}

		for _, stmt := range statements {
			if _, err := db.Exec(stmt); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		tables := []string{"jobs", "notes", "book_users", "page_terms", "terms", "chapter_pages", "pages", "chapters", "books"}
		for _, table := range tables {
			if _, err := db.Exec(`DROP TABLE IF EXISTS ` + table); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
