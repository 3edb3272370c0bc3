package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Photo processing states.
const (
	PhotoQueued     = "queued"
	PhotoProcessing = "processing"
	PhotoDone       = "done"
	PhotoError      = "error"
)

var ErrNotFound = errors.New("not found")

// Store wraps SQLite access for sessions, rooms, items and photos.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY,
        property TEXT NOT NULL,
        inspector TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS rooms (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT NOT NULL REFERENCES sessions(id),
        name TEXT NOT NULL,
        sort_order INTEGER NOT NULL DEFAULT 0,
        UNIQUE(session_id, name)
    );
    CREATE TABLE IF NOT EXISTS items (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        room_id INTEGER NOT NULL REFERENCES rooms(id),
        name TEXT NOT NULL,
        condition TEXT NOT NULL DEFAULT '',
        note TEXT NOT NULL DEFAULT '',
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE(room_id, name)
    );
    CREATE TABLE IF NOT EXISTS photos (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        item_id INTEGER NOT NULL REFERENCES items(id),
        filename TEXT NOT NULL,
        stored_path TEXT NOT NULL,
        thumb_path TEXT NOT NULL DEFAULT '',
        size_bytes INTEGER NOT NULL DEFAULT 0,
        hash TEXT NOT NULL DEFAULT '',
        status TEXT NOT NULL DEFAULT 'queued',
        last_error TEXT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TRIGGER IF NOT EXISTS photos_updated_at
    AFTER UPDATE ON photos
    BEGIN
        UPDATE photos SET updated_at = CURRENT_TIMESTAMP WHERE id = old.id;
    END;`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	// legacy compatibility: analysis columns arrived after the first schema
	needed := map[string]string{
		"caption":   "TEXT",
		"tags_json": "TEXT",
		"condition": "TEXT",
		"note":      "TEXT",
	}
	rows, err := s.db.Query("PRAGMA table_info(photos);")
	if err != nil {
		return err
	}
	defer rows.Close()
	existing := map[string]struct{}{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	for col, colType := range needed {
		if _, ok := existing[col]; !ok {
			stmt := fmt.Sprintf("ALTER TABLE photos ADD COLUMN %q %s NOT NULL DEFAULT ''", col, colType)
			if _, err := s.db.Exec(stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// Session is one inspection visit to a property.
type Session struct {
	ID        string    `json:"id"`
	Property  string    `json:"property"`
	Inspector string    `json:"inspector"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Room groups items within a session; sort order drives report layout.
type Room struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// Item is an inspected element of a room, holding the merged verdict
// across its photos.
type Item struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	Name      string    `json:"name"`
	Condition string    `json:"condition"`
	Note      string    `json:"note"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Photo is a stored upload plus its per-photo analysis result.
type Photo struct {
	ID         int64     `json:"id"`
	ItemID     int64     `json:"item_id"`
	Filename   string    `json:"filename"`
	StoredPath string    `json:"stored_path"`
	ThumbPath  string    `json:"thumb_path"`
	SizeBytes  int64     `json:"size_bytes"`
	Hash       string    `json:"hash"`
	Caption    string    `json:"caption"`
	TagsJSON   string    `json:"tags_json"`
	Condition  string    `json:"condition"`
	Note       string    `json:"note"`
	Status     string    `json:"status"`
	LastError  *string   `json:"last_error"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *Store) CreateSession(ctx context.Context, id, property, inspector string) (*Session, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, property, inspector, created_at, updated_at) VALUES(?,?,?,?,?)`,
		id, property, inspector, now, now)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, Property: property, Inspector: inspector, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, property, inspector, created_at, updated_at FROM sessions WHERE id = ?`, id)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Property, &sess.Inspector, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, property, inspector, created_at, updated_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Property, &sess.Inspector, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) touchSession(ctx context.Context, id string) {
	_, _ = s.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
}

// UpsertRoom returns the existing room of that name or creates one at the
// end of the session's sort order.
func (s *Store) UpsertRoom(ctx context.Context, sessionID, name string) (*Room, error) {
	if room, err := s.getRoomByName(ctx, sessionID, name); err == nil {
		return room, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	var next int
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM rooms WHERE session_id = ?`, sessionID)
	if err := row.Scan(&next); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms(session_id, name, sort_order) VALUES(?,?,?)`, sessionID, name, next)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	s.touchSession(ctx, sessionID)
	return &Room{ID: id, SessionID: sessionID, Name: name, SortOrder: next}, nil
}

func (s *Store) getRoomByName(ctx context.Context, sessionID, name string) (*Room, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, name, sort_order FROM rooms WHERE session_id = ? AND name = ?`, sessionID, name)
	return scanRoom(row)
}

func (s *Store) GetRoom(ctx context.Context, id int64) (*Room, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, name, sort_order FROM rooms WHERE id = ?`, id)
	return scanRoom(row)
}

func scanRoom(row *sql.Row) (*Room, error) {
	var r Room
	if err := row.Scan(&r.ID, &r.SessionID, &r.Name, &r.SortOrder); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListRooms(ctx context.Context, sessionID string) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, name, sort_order FROM rooms WHERE session_id = ? ORDER BY sort_order, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Name, &r.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReorderRooms rewrites sort_order so rooms appear in the given sequence.
// Every room of the session must be listed exactly once.
func (s *Store) ReorderRooms(ctx context.Context, sessionID string, orderedIDs []int64) error {
	rooms, err := s.ListRooms(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(orderedIDs) != len(rooms) {
		return fmt.Errorf("reorder needs all %d rooms, got %d", len(rooms), len(orderedIDs))
	}
	known := map[int64]struct{}{}
	for _, r := range rooms {
		known[r.ID] = struct{}{}
	}
	seen := map[int64]struct{}{}
	for _, id := range orderedIDs {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("room %d does not belong to session %s", id, sessionID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("room %d listed twice", id)
		}
		seen[id] = struct{}{}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for pos, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE rooms SET sort_order = ? WHERE id = ?`, pos, id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.touchSession(ctx, sessionID)
	return nil
}

func (s *Store) UpsertItem(ctx context.Context, roomID int64, name string) (*Item, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items(room_id, name, updated_at) VALUES(?,?,?)
         ON CONFLICT(room_id, name) DO NOTHING`, roomID, name, now)
	if err != nil {
		return nil, err
	}
	return s.getItemByName(ctx, roomID, name)
}

func (s *Store) getItemByName(ctx context.Context, roomID int64, name string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, room_id, name, condition, note, updated_at FROM items WHERE room_id = ? AND name = ?`, roomID, name)
	return scanItem(row)
}

func (s *Store) GetItem(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, room_id, name, condition, note, updated_at FROM items WHERE id = ?`, id)
	return scanItem(row)
}

func scanItem(row *sql.Row) (*Item, error) {
	var it Item
	if err := row.Scan(&it.ID, &it.RoomID, &it.Name, &it.Condition, &it.Note, &it.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (s *Store) ListItems(ctx context.Context, roomID int64) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, name, condition, note, updated_at FROM items WHERE room_id = ? ORDER BY id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.RoomID, &it.Name, &it.Condition, &it.Note, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateItemResult stores the merged verdict for an item.
func (s *Store) UpdateItemResult(ctx context.Context, itemID int64, cond, note string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET condition = ?, note = ?, updated_at = ? WHERE id = ?`,
		cond, note, time.Now().UTC(), itemID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) InsertPhoto(ctx context.Context, p *Photo) (*Photo, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO photos(item_id, filename, stored_path, thumb_path, size_bytes, hash, status, created_at, updated_at)
         VALUES(?,?,?,?,?,?,?,?,?)`,
		p.ItemID, p.Filename, p.StoredPath, p.ThumbPath, p.SizeBytes, p.Hash, PhotoQueued, now, now)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	p.ID = id
	p.Status = PhotoQueued
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (s *Store) GetPhoto(ctx context.Context, id int64) (*Photo, error) {
	row := s.db.QueryRowContext(ctx, photoSelect+` WHERE id = ?`, id)
	return scanPhoto(row)
}

const photoSelect = `SELECT id, item_id, filename, stored_path, thumb_path, size_bytes, hash,
    caption, tags_json, condition, note, status, last_error, created_at, updated_at FROM photos`

func scanPhoto(row *sql.Row) (*Photo, error) {
	var p Photo
	err := row.Scan(&p.ID, &p.ItemID, &p.Filename, &p.StoredPath, &p.ThumbPath, &p.SizeBytes, &p.Hash,
		&p.Caption, &p.TagsJSON, &p.Condition, &p.Note, &p.Status, &p.LastError, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPhotos(ctx context.Context, itemID int64) ([]Photo, error) {
	rows, err := s.db.QueryContext(ctx, photoSelect+` WHERE item_id = ? ORDER BY id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Photo
	for rows.Next() {
		var p Photo
		err := rows.Scan(&p.ID, &p.ItemID, &p.Filename, &p.StoredPath, &p.ThumbPath, &p.SizeBytes, &p.Hash,
			&p.Caption, &p.TagsJSON, &p.Condition, &p.Note, &p.Status, &p.LastError, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) MarkPhotoProcessing(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE photos SET status = ?, last_error = NULL WHERE id = ?`, PhotoProcessing, id)
	return err
}

func (s *Store) UpdatePhotoAnalysis(ctx context.Context, id int64, caption, tagsJSON, cond, note string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE photos SET caption = ?, tags_json = ?, condition = ?, note = ?, status = ?, last_error = NULL WHERE id = ?`,
		caption, tagsJSON, cond, note, PhotoDone, id)
	return err
}

func (s *Store) MarkPhotoError(ctx context.Context, id int64, msg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE photos SET status = ?, last_error = ? WHERE id = ?`, PhotoError, msg, id)
	return err
}

// Counts summarizes photo processing for /ops/status.
type Counts struct {
	Sessions int `json:"sessions"`
	Rooms    int `json:"rooms"`
	Items    int `json:"items"`
	Photos   int `json:"photos"`
	Queued   int `json:"photos_queued"`
	Done     int `json:"photos_done"`
	Errored  int `json:"photos_error"`
}

func (s *Store) CountAll(ctx context.Context) (Counts, error) {
	var c Counts
	row := s.db.QueryRowContext(ctx, `SELECT
        (SELECT COUNT(*) FROM sessions),
        (SELECT COUNT(*) FROM rooms),
        (SELECT COUNT(*) FROM items),
        (SELECT COUNT(*) FROM photos),
        (SELECT COUNT(*) FROM photos WHERE status IN ('queued','processing')),
        (SELECT COUNT(*) FROM photos WHERE status = 'done'),
        (SELECT COUNT(*) FROM photos WHERE status = 'error')`)
	if err := row.Scan(&c.Sessions, &c.Rooms, &c.Items, &c.Photos, &c.Queued, &c.Done, &c.Errored); err != nil {
		return Counts{}, err
	}
	return c, nil
}
