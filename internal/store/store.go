package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Portfolio kinds.
const (
	KindPersonal  = "personal"
	KindProjects  = "projects"
	KindCommunity = "community"
)

// Friendship statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// User is a platform account.
type User struct {
	ID          string    `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Note is the unit of content the feed ranks. Portfolios holds the ids of
// the portfolios the note is attached to, persisted as a JSON column.
type Note struct {
	ID             string    `db:"id" json:"id"`
	AuthorID       string    `db:"author_id" json:"author_id"`
	Body           string    `db:"body" json:"body"`
	Portfolios     []string  `json:"portfolios,omitempty" db:"-"`
	PortfoliosJSON string    `json:"-" db:"portfolios"`
	SourceRef      string    `db:"source_ref" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	Deleted        bool      `db:"deleted" json:"-"`
}

// Friendship is an edge between two users.
type Friendship struct {
	ID        int64     `db:"id" json:"id"`
	UserA     string    `db:"user_a" json:"user_a"`
	UserB     string    `db:"user_b" json:"user_b"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Other returns the participant that is not userID.
func (f Friendship) Other(userID string) string {
	if f.UserA == userID {
		return f.UserB
	}
	return f.UserA
}

// Portfolio is a content collection: a personal gallery, a projects space,
// or a community. Members is persisted as a JSON column.
type Portfolio struct {
	ID          string    `db:"id" json:"id"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	Name        string    `db:"name" json:"name"`
	Kind        string    `db:"kind" json:"kind"`
	Members     []string  `json:"members,omitempty" db:"-"`
	MembersJSON string    `json:"-" db:"members"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// HasMember reports whether userID is in the members list.
func (p Portfolio) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// NoveltyRecord is the persisted form of a user's seen-set filter.
type NoveltyRecord struct {
	UserID      string    `db:"user_id"`
	Filter      []byte    `db:"filter"`
	LastUpdated time.Time `db:"last_updated"`
}

// Store is the persistence interface.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)

	CreateNote(ctx context.Context, n *Note) error
	HasNoteRef(ctx context.Context, ref string) (bool, error)
	RecentNotes(ctx context.Context, limit int) ([]Note, error)
	RecentNotesByAuthors(ctx context.Context, authorIDs []string, limit int) ([]Note, error)

	AddFriendship(ctx context.Context, f *Friendship) error
	AcceptedFriendships(ctx context.Context, userID string) ([]Friendship, error)

	CreatePortfolio(ctx context.Context, p *Portfolio) error
	GetPortfolio(ctx context.Context, id string) (*Portfolio, error)
	PortfoliosWithUser(ctx context.Context, userID string) ([]Portfolio, error)

	Subscribe(ctx context.Context, userID, portfolioID string) error
	SubscribedPortfolioIDs(ctx context.Context, userID string) ([]string, error)

	LoadNoveltyRecord(ctx context.Context, userID string) (*NoveltyRecord, error)
	SaveNoveltyRecord(ctx context.Context, userID string, filter []byte) error

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, created_at)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Username, u.DisplayName, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

func (s *SQLiteStore) CreateNote(ctx context.Context, n *Note) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	portfoliosJSON, _ := json.Marshal(n.Portfolios)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, author_id, body, portfolios, source_ref, created_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.AuthorID, n.Body, string(portfoliosJSON), n.SourceRef, n.CreatedAt, n.Deleted)
	if err != nil {
		return fmt.Errorf("create note %s: %w", n.ID, err)
	}
	return nil
}

func (s *SQLiteStore) HasNoteRef(ctx context.Context, ref string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM notes WHERE source_ref = ?", ref)
	if err != nil {
		return false, fmt.Errorf("check note ref: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) RecentNotes(ctx context.Context, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 50
	}
	var notes []Note
	err := s.db.SelectContext(ctx, &notes, `
		SELECT * FROM notes WHERE deleted = 0
		ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent notes: %w", err)
	}
	unmarshalPortfolios(notes)
	return notes, nil
}

func (s *SQLiteStore) RecentNotesByAuthors(ctx context.Context, authorIDs []string, limit int) ([]Note, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query, args, err := sqlx.In(`
		SELECT * FROM notes WHERE deleted = 0 AND author_id IN (?)
		ORDER BY created_at DESC, id LIMIT ?
	`, authorIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("build author query: %w", err)
	}

	var notes []Note
	if err := s.db.SelectContext(ctx, &notes, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list notes by authors: %w", err)
	}
	unmarshalPortfolios(notes)
	return notes, nil
}

func unmarshalPortfolios(notes []Note) {
	for i := range notes {
		json.Unmarshal([]byte(notes[i].PortfoliosJSON), &notes[i].Portfolios)
	}
}

func (s *SQLiteStore) AddFriendship(ctx context.Context, f *Friendship) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO friendships (user_a, user_b, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_a, user_b) DO UPDATE SET status = excluded.status
	`, f.UserA, f.UserB, f.Status, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("add friendship %s/%s: %w", f.UserA, f.UserB, err)
	}
	f.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) AcceptedFriendships(ctx context.Context, userID string) ([]Friendship, error) {
	var edges []Friendship
	err := s.db.SelectContext(ctx, &edges, `
		SELECT * FROM friendships
		WHERE status = ? AND (user_a = ? OR user_b = ?)
		ORDER BY id
	`, StatusAccepted, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list friendships %s: %w", userID, err)
	}
	return edges, nil
}

func (s *SQLiteStore) CreatePortfolio(ctx context.Context, p *Portfolio) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	membersJSON, _ := json.Marshal(p.Members)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolios (id, owner_id, name, kind, members, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, members = excluded.members
	`, p.ID, p.OwnerID, p.Name, p.Kind, string(membersJSON), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create portfolio %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetPortfolio(ctx context.Context, id string) (*Portfolio, error) {
	var p Portfolio
	err := s.db.GetContext(ctx, &p, "SELECT * FROM portfolios WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("portfolio %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get portfolio %s: %w", id, err)
	}
	json.Unmarshal([]byte(p.MembersJSON), &p.Members)
	return &p, nil
}

// PortfoliosWithUser returns portfolios the user owns or is a member of.
// The LIKE clause is a prefilter over the JSON members column; the exact
// membership check happens after unmarshalling.
func (s *SQLiteStore) PortfoliosWithUser(ctx context.Context, userID string) ([]Portfolio, error) {
	var rows []Portfolio
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM portfolios
		WHERE owner_id = ? OR members LIKE '%' || ? || '%'
		ORDER BY id
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list portfolios for %s: %w", userID, err)
	}

	var out []Portfolio
	for i := range rows {
		json.Unmarshal([]byte(rows[i].MembersJSON), &rows[i].Members)
		if rows[i].OwnerID == userID || rows[i].HasMember(userID) {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, userID, portfolioID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, portfolio_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, portfolio_id) DO NOTHING
	`, userID, portfolioID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("subscribe %s to %s: %w", userID, portfolioID, err)
	}
	return nil
}

func (s *SQLiteStore) SubscribedPortfolioIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT portfolio_id FROM subscriptions WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions %s: %w", userID, err)
	}
	return ids, nil
}

func (s *SQLiteStore) LoadNoveltyRecord(ctx context.Context, userID string) (*NoveltyRecord, error) {
	var rec NoveltyRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM novelty_trackers WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("novelty record %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load novelty record %s: %w", userID, err)
	}
	return &rec, nil
}

func (s *SQLiteStore) SaveNoveltyRecord(ctx context.Context, userID string, filter []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO novelty_trackers (user_id, filter, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			filter = excluded.filter,
			last_updated = excluded.last_updated
	`, userID, filter, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save novelty record %s: %w", userID, err)
	}
	return nil
}
