package shire

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported database/sql driver names.
const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

// Timestamps are stored as fixed-width UTC text so they sort lexically on
// both drivers.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const maxSlugAttempts = 3

// Store wraps a SQL database and provides the repository operations for
// posts, contact messages, users and uploaded images.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	return OpenStore(DriverSQLite, path)
}

// OpenStore opens a store on the given driver. For sqlite dsn is a file
// path; for pgx it is a Postgres connection string.
func OpenStore(driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = openSQLite(dsn)
	case DriverPgx:
		db, err = sql.Open(DriverPgx, dsn)
		if err == nil {
			err = db.Ping()
		}
	default:
		return nil, fmt.Errorf("shire: unsupported database driver %q", driver)
	}
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}
	s := &Store{db: db, driver: driver, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SQLite's built-in lower() only folds ASCII, so search folds columns with
// a Go function registered on the driver instead.
const sqliteLowerFunc = "shire_lower"

var registerLowerOnce sync.Once
var registerLowerErr error

func registerSQLiteLower() error {
	registerLowerOnce.Do(func() {
		registerLowerErr = sqlite.RegisterDeterministicScalarFunction(sqliteLowerFunc, 1,
			func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				switch v := args[0].(type) {
				case nil:
					return nil, nil
				case string:
					return strings.ToLower(v), nil
				case []byte:
					return strings.ToLower(string(v)), nil
				default:
					return v, nil
				}
			})
	})
	return registerLowerErr
}

func openSQLite(path string) (*sql.DB, error) {
	if err := registerSQLiteLower(); err != nil {
		return nil, fmt.Errorf("shire: register %s: %w", sqliteLowerFunc, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during a write; busy_timeout makes writers
	// wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		return db, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	return db, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver reports the database/sql driver the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    profile_image_url TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS blog_posts (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    excerpt TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    featured_image TEXT NOT NULL DEFAULT '',
    author_id TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 0,
    tags TEXT NOT NULL DEFAULT ',',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS blog_posts_created_at ON blog_posts (created_at)`,
	`CREATE TABLE IF NOT EXISTS contact_messages (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    subject TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
)`,
}

// ensureSchema runs one statement per Exec so the same schema works on both drivers.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("shire: ensure schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $1, $2, ... for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPgx {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether err is a unique-constraint failure on
// either driver.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

const postColumns = `id, title, slug, excerpt, content, featured_image, author_id, published, tags, created_at, updated_at`

func scanPost(row rowScanner) (BlogPost, error) {
	var (
		p                    BlogPost
		published            int
		tags                 string
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.FeaturedImage,
		&p.AuthorID, &published, &tags, &createdAt, &updatedAt); err != nil {
		return BlogPost{}, err
	}
	p.Published = published == 1
	p.Tags = ParseTags(tags)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]BlogPost, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []BlogPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Store) getPost(ctx context.Context, column, value string) (BlogPost, bool, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+postColumns+` FROM blog_posts WHERE `+column+` = ?`), value)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BlogPost{}, false, nil
	}
	if err != nil {
		return BlogPost{}, false, err
	}
	return p, true, nil
}

// GetPostByID returns the post with the given id, drafts included.
func (s *Store) GetPostByID(ctx context.Context, id string) (BlogPost, bool, error) {
	return s.getPost(ctx, "id", id)
}

// GetPostBySlug returns the post with the given slug, drafts included.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (BlogPost, bool, error) {
	return s.getPost(ctx, "slug", slug)
}

// ListPosts returns posts ordered newest first. A nil published lists
// everything; otherwise only posts with that published state.
func (s *Store) ListPosts(ctx context.Context, published *bool) ([]BlogPost, error) {
	if published == nil {
		return s.queryPosts(ctx, `SELECT `+postColumns+` FROM blog_posts ORDER BY created_at DESC, id DESC`)
	}
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE published = ? ORDER BY created_at DESC, id DESC`, boolInt(*published))
}

// SearchPosts returns posts whose title, content or excerpt contains query,
// ignoring case, newest first. A blank query matches nothing.
func (s *Store) SearchPosts(ctx context.Context, query string) ([]BlogPost, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []BlogPost{}, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	lower := s.lowerFunc()
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM blog_posts
WHERE `+lower+`(title) LIKE ? ESCAPE '\' OR `+lower+`(content) LIKE ? ESCAPE '\' OR `+lower+`(excerpt) LIKE ? ESCAPE '\'
ORDER BY created_at DESC, id DESC`, pattern, pattern, pattern)
}

// lowerFunc is the SQL function that folds case for every Unicode letter.
func (s *Store) lowerFunc() string {
	if s.driver == DriverSQLite {
		return sqliteLowerFunc
	}
	return "lower"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListTags returns a sorted, deduplicated slice of all tags from published posts.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT tags FROM blog_posts WHERE published = ?`), 1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, err
		}
		for _, t := range ParseTags(tags) {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result := make([]string, 0, len(set))
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

// uniqueSlug derives a slug from title that no post other than excludeID
// holds, appending -2, -3, ... as needed.
func (s *Store) uniqueSlug(ctx context.Context, title, excludeID string) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "post"
	}
	candidate := base
	for n := 2; ; n++ {
		var id string
		err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id FROM blog_posts WHERE slug = ?`), candidate).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && id == excludeID) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

// CreatePost validates in, assigns an id, a unique slug and timestamps, and
// stores the post.
func (s *Store) CreatePost(ctx context.Context, in NewPost) (BlogPost, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	in.AuthorID = strings.TrimSpace(in.AuthorID)
	in.Tags = NormalizeTags(in.Tags)
	if err := in.Validate(); err != nil {
		return BlogPost{}, err
	}

	now := s.timestamp()
	post := BlogPost{
		ID:            uuid.NewString(),
		Title:         in.Title,
		Excerpt:       in.Excerpt,
		Content:       in.Content,
		FeaturedImage: in.FeaturedImage,
		AuthorID:      in.AuthorID,
		Published:     in.Published,
		Tags:          in.Tags,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		slug, err := s.uniqueSlug(ctx, post.Title, post.ID)
		if err != nil {
			return BlogPost{}, err
		}
		post.Slug = slug
		_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO blog_posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			post.ID, post.Title, post.Slug, post.Excerpt, post.Content, post.FeaturedImage, post.AuthorID,
			boolInt(post.Published), formatTags(post.Tags), formatTime(post.CreatedAt), formatTime(post.UpdatedAt))
		if err == nil {
			return post, nil
		}
		if !isUniqueViolation(err) {
			return BlogPost{}, err
		}
	}
	return BlogPost{}, fmt.Errorf("%w: %s", ErrSlugConflict, post.Slug)
}

// UpdatePost merges the set fields of patch into the post with the given id.
// Setting a title recomputes the slug. The update time is always refreshed.
func (s *Store) UpdatePost(ctx context.Context, id string, patch PostPatch) (BlogPost, error) {
	if patch.Tags != nil {
		tags := NormalizeTags(*patch.Tags)
		patch.Tags = &tags
	}
	if err := patch.Validate(); err != nil {
		return BlogPost{}, err
	}
	post, ok, err := s.GetPostByID(ctx, id)
	if err != nil {
		return BlogPost{}, err
	}
	if !ok {
		return BlogPost{}, &NotFoundError{Kind: "post", Key: id}
	}
	patch.apply(&post)
	post.UpdatedAt = s.timestamp()
	if post.UpdatedAt.Before(post.CreatedAt) {
		post.UpdatedAt = post.CreatedAt
	}

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		if patch.Title != nil {
			if post.Slug, err = s.uniqueSlug(ctx, post.Title, post.ID); err != nil {
				return BlogPost{}, err
			}
		}
		res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE blog_posts SET title = ?, slug = ?, excerpt = ?, content = ?, featured_image = ?, published = ?, tags = ?, updated_at = ? WHERE id = ?`),
			post.Title, post.Slug, post.Excerpt, post.Content, post.FeaturedImage,
			boolInt(post.Published), formatTags(post.Tags), formatTime(post.UpdatedAt), post.ID)
		if err != nil {
			if isUniqueViolation(err) && patch.Title != nil {
				continue
			}
			return BlogPost{}, err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return BlogPost{}, &NotFoundError{Kind: "post", Key: id}
		}
		return post, nil
	}
	return BlogPost{}, fmt.Errorf("%w: %s", ErrSlugConflict, post.Slug)
}

// DeletePost removes a post by id. Deleting an absent id is not an error.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM blog_posts WHERE id = ?`), id)
	return err
}

// CreateContactMessage validates and stores a visitor message.
func (s *Store) CreateContactMessage(ctx context.Context, in NewContactMessage) (ContactMessage, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = Subject(strings.TrimSpace(string(in.Subject)))
	in.Message = strings.TrimSpace(in.Message)
	if err := in.Validate(); err != nil {
		return ContactMessage{}, err
	}
	msg := ContactMessage{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Subject:   in.Subject,
		Message:   in.Message,
		CreatedAt: s.timestamp(),
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO contact_messages (id, name, email, subject, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		msg.ID, msg.Name, msg.Email, string(msg.Subject), msg.Message, formatTime(msg.CreatedAt))
	if err != nil {
		return ContactMessage{}, err
	}
	return msg, nil
}

// ListContactMessages returns every contact message, newest first.
func (s *Store) ListContactMessages(ctx context.Context) ([]ContactMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, subject, message, created_at FROM contact_messages ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []ContactMessage{}
	for rows.Next() {
		var (
			m         ContactMessage
			subject   string
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &subject, &m.Message, &createdAt); err != nil {
			return nil, err
		}
		m.Subject = Subject(subject)
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// UpsertUser inserts u or, when the id exists, updates its profile fields.
// The creation time of an existing user is preserved.
func (s *Store) UpsertUser(ctx context.Context, u User) (User, error) {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return User{}, &ValidationError{Field: "id", Message: "cannot be blank"}
	}
	now := formatTime(s.timestamp())
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO users (id, email, first_name, last_name, profile_image_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    email = excluded.email,
    first_name = excluded.first_name,
    last_name = excluded.last_name,
    profile_image_url = excluded.profile_image_url,
    updated_at = excluded.updated_at`),
		u.ID, u.Email, u.FirstName, u.LastName, u.ProfileImageURL, now, now)
	if err != nil {
		return User{}, err
	}
	stored, _, err := s.GetUser(ctx, u.ID)
	return stored, err
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (User, bool, error) {
	var (
		u                    User
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, email, first_name, last_name, profile_image_url, created_at, updated_at FROM users WHERE id = ?`), id).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.ProfileImageURL, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return u, true, nil
}

// SaveImage records metadata for an uploaded image.
func (s *Store) SaveImage(ctx context.Context, img Image) error {
	if img.UploadedAt.IsZero() {
		img.UploadedAt = s.timestamp()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO images (filename, original_name, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`),
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, formatTime(img.UploadedAt))
	return err
}

// ListImages returns uploaded images, newest first.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename, original_name, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC, filename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := []Image{}
	for rows.Next() {
		var (
			img        Image
			uploadedAt string
		)
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &uploadedAt); err != nil {
			return nil, err
		}
		img.UploadedAt = parseTime(uploadedAt)
		images = append(images, img)
	}
	return images, rows.Err()
}

// ImageExists reports whether filename is already recorded.
func (s *Store) ImageExists(ctx context.Context, filename string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM images WHERE filename = ?`), filename).Scan(&n)
	return n > 0, err
}

// DeleteImage removes the metadata row for filename.
func (s *Store) DeleteImage(ctx context.Context, filename string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM images WHERE filename = ?`), filename)
	return err
}
