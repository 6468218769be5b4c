package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"
)

// Schema is the relational layout of a catalog. ins_cd scopes aliases per issuer.
const Schema = `
CREATE TABLE IF NOT EXISTS catalog_meta (
	version TEXT NOT NULL,
	as_of   TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS catalog_attributes (
	position  INTEGER NOT NULL,
	attribute TEXT NOT NULL PRIMARY KEY,
	rule      TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS canonical_entries (
	canonical_id TEXT NOT NULL PRIMARY KEY,
	display_name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entry_aliases (
	canonical_id TEXT NOT NULL,
	ins_cd       TEXT NOT NULL,
	alias        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entry_terms (
	canonical_id TEXT NOT NULL,
	kind         TEXT NOT NULL,
	attribute    TEXT NOT NULL DEFAULT '',
	position     INTEGER NOT NULL,
	term         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS global_patterns (
	kind      TEXT NOT NULL,
	attribute TEXT NOT NULL DEFAULT '',
	position  INTEGER NOT NULL,
	pattern   TEXT NOT NULL
);
`

// Term kinds stored in entry_terms and global_patterns
const (
	kindRequired        = "required"
	kindTrigger         = "trigger"
	kindSubtype         = "subtype"
	kindAttribute       = "attribute"
	kindHardNegative    = "hard_negative"
	kindSectionNegative = "section_negative"
	kindSlotNegative    = "slot_negative"
)

// SQLiteSource reads the catalog from a SQLite database
type SQLiteSource struct {
	DSN string
}

// Describe implements Source
func (s *SQLiteSource) Describe() string {
	return "sqlite:" + s.DSN
}

// Load implements Source
func (s *SQLiteSource) Load(ctx context.Context) (raw *Raw, err error) {
	db, err := sql.Open("sqlite", s.DSN)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close catalog db: %w", closeErr)
		}
	}()
	return ReadSQLite(ctx, db)
}

// ReadSQLite reads a raw catalog document from db
func ReadSQLite(ctx context.Context, db *sql.DB) (*Raw, error) {
	raw := &Raw{SlotNegatives: make(map[string][]string)}

	rows, err := db.QueryContext(ctx, `SELECT version, as_of FROM catalog_meta`)
	if err != nil {
		return nil, fmt.Errorf("query catalog_meta: %w", err)
	}
	metaRows := 0
	for rows.Next() {
		if err := rows.Scan(&raw.Version, &raw.AsOf); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan catalog_meta: %w", err)
		}
		metaRows++
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}
	if metaRows != 1 {
		return nil, fmt.Errorf("catalog_meta must hold exactly one row, found %d", metaRows)
	}

	rows, err = db.QueryContext(ctx, `SELECT attribute, rule FROM catalog_attributes ORDER BY position, attribute`)
	if err != nil {
		return nil, fmt.Errorf("query catalog_attributes: %w", err)
	}
	for rows.Next() {
		var a RawAttribute
		if err := rows.Scan(&a.Key, &a.Rule); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan catalog_attributes: %w", err)
		}
		raw.Attributes = append(raw.Attributes, a)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `SELECT kind, attribute, pattern FROM global_patterns ORDER BY kind, attribute, position`)
	if err != nil {
		return nil, fmt.Errorf("query global_patterns: %w", err)
	}
	for rows.Next() {
		var kind, attr, pattern string
		if err := rows.Scan(&kind, &attr, &pattern); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan global_patterns: %w", err)
		}
		switch kind {
		case kindHardNegative:
			raw.HardNegatives = append(raw.HardNegatives, pattern)
		case kindSectionNegative:
			raw.SectionNegatives = append(raw.SectionNegatives, pattern)
		case kindSlotNegative:
			raw.SlotNegatives[attr] = append(raw.SlotNegatives[attr], pattern)
		default:
			_ = rows.Close()
			return nil, fmt.Errorf("global_patterns: unknown kind %q", kind)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	index := make(map[string]int)
	rows, err = db.QueryContext(ctx, `SELECT canonical_id, display_name FROM canonical_entries ORDER BY canonical_id`)
	if err != nil {
		return nil, fmt.Errorf("query canonical_entries: %w", err)
	}
	for rows.Next() {
		var e RawEntry
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan canonical_entries: %w", err)
		}
		e.Aliases = make(map[string][]string)
		e.RequiredTerms = make(map[string][]string)
		index[e.ID] = len(raw.Entries)
		raw.Entries = append(raw.Entries, e)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `SELECT canonical_id, ins_cd, alias FROM entry_aliases ORDER BY canonical_id, ins_cd, alias`)
	if err != nil {
		return nil, fmt.Errorf("query entry_aliases: %w", err)
	}
	for rows.Next() {
		var id, insCd, alias string
		if err := rows.Scan(&id, &insCd, &alias); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan entry_aliases: %w", err)
		}
		i, ok := index[id]
		if !ok {
			_ = rows.Close()
			return nil, fmt.Errorf("entry_aliases: unknown canonical_id %q", id)
		}
		raw.Entries[i].Aliases[insCd] = append(raw.Entries[i].Aliases[insCd], alias)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `SELECT canonical_id, kind, attribute, term FROM entry_terms ORDER BY canonical_id, kind, attribute, position`)
	if err != nil {
		return nil, fmt.Errorf("query entry_terms: %w", err)
	}
	for rows.Next() {
		var id, kind, attr, term string
		if err := rows.Scan(&id, &kind, &attr, &term); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan entry_terms: %w", err)
		}
		i, ok := index[id]
		if !ok {
			_ = rows.Close()
			return nil, fmt.Errorf("entry_terms: unknown canonical_id %q", id)
		}
		e := &raw.Entries[i]
		switch kind {
		case kindRequired:
			e.RequiredTerms[attr] = append(e.RequiredTerms[attr], term)
		case kindTrigger:
			e.TriggerTerms = append(e.TriggerTerms, term)
		case kindSubtype:
			e.SubtypeKeywords = append(e.SubtypeKeywords, term)
		case kindAttribute:
			e.Attributes = append(e.Attributes, term)
		default:
			_ = rows.Close()
			return nil, fmt.Errorf("entry_terms: unknown kind %q", kind)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	return raw, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterate rows: %w", err)
	}
	return rows.Close()
}

// WriteSQLite stores raw into db inside one transaction, replacing any catalog already there
func WriteSQLite(ctx context.Context, db *sql.DB, raw *Raw) (err error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"catalog_meta", "catalog_attributes", "canonical_entries", "entry_aliases", "entry_terms", "global_patterns"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO catalog_meta (version, as_of) VALUES (?, ?)`, raw.Version, raw.AsOf); err != nil {
		return fmt.Errorf("insert catalog_meta: %w", err)
	}
	for i, a := range raw.Attributes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO catalog_attributes (position, attribute, rule) VALUES (?, ?, ?)`, i, a.Key, string(a.Rule)); err != nil {
			return fmt.Errorf("insert attribute %q: %w", a.Key, err)
		}
	}

	insertPattern := func(kind, attr string, patterns []string) error {
		for i, p := range patterns {
			if _, err := tx.ExecContext(ctx, `INSERT INTO global_patterns (kind, attribute, position, pattern) VALUES (?, ?, ?, ?)`, kind, attr, i, p); err != nil {
				return fmt.Errorf("insert %s pattern: %w", kind, err)
			}
		}
		return nil
	}
	if err := insertPattern(kindHardNegative, "", raw.HardNegatives); err != nil {
		return err
	}
	if err := insertPattern(kindSectionNegative, "", raw.SectionNegatives); err != nil {
		return err
	}
	for _, attr := range sortedKeys(raw.SlotNegatives) {
		if err := insertPattern(kindSlotNegative, attr, raw.SlotNegatives[attr]); err != nil {
			return err
		}
	}

	for _, e := range raw.Entries {
		if _, err := tx.ExecContext(ctx, `INSERT INTO canonical_entries (canonical_id, display_name) VALUES (?, ?)`, e.ID, e.Name); err != nil {
			return fmt.Errorf("insert entry %q: %w", e.ID, err)
		}
		for _, insCd := range sortedKeys(e.Aliases) {
			for _, alias := range e.Aliases[insCd] {
				if _, err := tx.ExecContext(ctx, `INSERT INTO entry_aliases (canonical_id, ins_cd, alias) VALUES (?, ?, ?)`, e.ID, insCd, alias); err != nil {
					return fmt.Errorf("insert alias %q: %w", alias, err)
				}
			}
		}
		insertTerms := func(kind, attr string, terms []string) error {
			for i, term := range terms {
				if _, err := tx.ExecContext(ctx, `INSERT INTO entry_terms (canonical_id, kind, attribute, position, term) VALUES (?, ?, ?, ?, ?)`, e.ID, kind, attr, i, term); err != nil {
					return fmt.Errorf("insert %s term for %q: %w", kind, e.ID, err)
				}
			}
			return nil
		}
		for _, attr := range sortedKeys(e.RequiredTerms) {
			if err := insertTerms(kindRequired, attr, e.RequiredTerms[attr]); err != nil {
				return err
			}
		}
		if err := insertTerms(kindTrigger, "", e.TriggerTerms); err != nil {
			return err
		}
		if err := insertTerms(kindSubtype, "", e.SubtypeKeywords); err != nil {
			return err
		}
		if err := insertTerms(kindAttribute, "", e.Attributes); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
