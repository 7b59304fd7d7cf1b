// Package store persists outlines. The native format is a SQLite database
// keyed by gnx; JSON and YAML documents are supported for interchange.
//
// Clones are stored once: a vnode row per gnx and one edge row per child
// slot. Loading links parents before children, so a gnx that appears under
// several parents becomes one shared vnode again.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leo-editor/leo/internal/outline"
)

const formatVersion = "1"

const schema = `
CREATE TABLE IF NOT EXISTS vnodes (
	gnx    TEXT PRIMARY KEY,
	head   TEXT NOT NULL,
	body   TEXT NOT NULL,
	status INTEGER NOT NULL DEFAULT 0,
	ua     JSON
);

CREATE TABLE IF NOT EXISTS edges (
	parent_gnx TEXT NOT NULL,
	idx        INTEGER NOT NULL,
	child_gnx  TEXT NOT NULL,
	PRIMARY KEY (parent_gnx, idx)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Save replaces the contents of the database at path with o.
func Save(ctx context.Context, path string, o *outline.Outline) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"vnodes", "edges", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	stmtNode, err := tx.PrepareContext(ctx, `INSERT INTO vnodes (gnx, head, body, status, ua) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmtNode.Close() }()
	stmtEdge, err := tx.PrepareContext(ctx, `INSERT INTO edges (parent_gnx, idx, child_gnx) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmtEdge.Close() }()

	writeEdges := func(parent string, children []*outline.VNode) error {
		for i, c := range children {
			if _, err := stmtEdge.ExecContext(ctx, parent, i, c.Gnx()); err != nil {
				return fmt.Errorf("insert edge %s[%d]: %w", parent, i, err)
			}
		}
		return nil
	}

	if err := writeEdges("", o.HiddenRoot().Children()); err != nil {
		return err
	}
	n := 0
	for v := range o.AllUniqueNodes() {
		var ua any
		if len(v.UA) > 0 {
			b, err := json.Marshal(v.UA)
			if err != nil {
				return fmt.Errorf("encode ua of %s: %w", v.Gnx(), err)
			}
			ua = string(b)
		}
		status := uint32(v.Status() & outline.PersistentStatus)
		if _, err := stmtNode.ExecContext(ctx, v.Gnx(), v.HeadString(), v.BodyString(), status, ua); err != nil {
			return fmt.Errorf("insert vnode %s: %w", v.Gnx(), err)
		}
		if err := writeEdges(v.Gnx(), v.Children()); err != nil {
			return err
		}
		n++
	}

	meta := map[string]string{
		"format_version": formatVersion,
		"owner_id":       o.Indices().OwnerID(),
		"saved_at":       time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert meta %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	o.Logger().Debug("saved outline", "path", path, "vnodes", n)
	return nil
}

// Load reads the outline stored at path. Edges naming a missing vnode are
// dropped with a warning, and the gnx counter is raised above every loaded
// gnx of the current owner.
func Load(ctx context.Context, path string, opts outline.Options) (*outline.Outline, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open outline: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	var version string
	err = db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'format_version'`).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s has no format version", ErrFormat, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: %s has version %q", ErrFormat, path, version)
	}

	o := outline.New(opts)
	nodes := make(map[string]*outline.VNode)

	rows, err := db.QueryContext(ctx, `SELECT gnx, head, body, status, ua FROM vnodes`)
	if err != nil {
		return nil, fmt.Errorf("query vnodes: %w", err)
	}
	for rows.Next() {
		var (
			gnx, head, body string
			status          uint32
			ua              sql.NullString
		)
		if err := rows.Scan(&gnx, &head, &body, &status, &ua); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan vnode: %w", err)
		}
		if gnx == "" {
			o.Logger().Warn("dropping vnode with empty gnx", "head", head)
			continue
		}
		v := o.VNodeForGnx(gnx)
		v.SetHeadString(head)
		v.SetBodyString(body)
		v.SetStatus(outline.Status(status) & outline.PersistentStatus)
		if ua.Valid && ua.String != "" {
			if err := json.Unmarshal([]byte(ua.String), &v.UA); err != nil {
				o.Logger().Warn("dropping unreadable ua", "gnx", gnx, "err", err)
			}
		}
		nodes[gnx] = v
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	edges := make(map[string][]string)
	rows, err = db.QueryContext(ctx, `SELECT parent_gnx, child_gnx FROM edges ORDER BY parent_gnx, idx`)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	for rows.Next() {
		var parent, child string
		if err := rows.Scan(&parent, &child); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges[parent] = append(edges[parent], child)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	link(o, nodes, edges)
	o.Indices().RecomputeLastIndex(o)
	o.ClearChanged()
	o.Logger().Debug("loaded outline", "path", path, "vnodes", len(nodes))
	return o, nil
}

// link attaches vnodes breadth first from the hidden root, whose key in
// edges is "". nodes never holds that key. Each parent's children are
// linked once.
func link(o *outline.Outline, nodes map[string]*outline.VNode, edges map[string][]string) {
	log := o.Logger()
	expanded := map[string]bool{"": true}
	queue := []string{""}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		pv := nodes[parent]
		for _, gnx := range edges[parent] {
			cv := nodes[gnx]
			if cv == nil {
				log.Warn("dropping edge to missing vnode", slog.String("parent", parent), slog.String("child", gnx))
				continue
			}
			if err := o.AppendChild(pv, cv); err != nil {
				log.Warn("dropping edge", "parent", parent, "child", gnx, "err", err)
				continue
			}
			if !expanded[gnx] {
				expanded[gnx] = true
				queue = append(queue, gnx)
			}
		}
	}
	for gnx, v := range nodes {
		if len(v.Parents()) == 0 {
			log.Warn("vnode not reachable from the hidden root", "gnx", gnx)
		}
	}
}
