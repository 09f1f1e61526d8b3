package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries is the hand-written data access layer over the pool.
type Queries struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

type Document struct {
	ID        string
	Name      string
	OwnerID   string
	PageCount int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Snapshot struct {
	ID         string
	DocumentID string
	Version    int32
	Model      []byte
	CreatedAt  time.Time
}

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) (User, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password, display_name, created_at`,
		p.ID, p.Email, p.Password, p.DisplayName)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at
		FROM users WHERE email = $1`, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at
		FROM users WHERE id = $1`, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

type CreateDocumentParams struct {
	ID        string
	Name      string
	OwnerID   string
	PageCount int32
}

func (q *Queries) CreateDocument(ctx context.Context, p CreateDocumentParams) (Document, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO documents (id, name, owner_id, page_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, owner_id, page_count, created_at, updated_at`,
		p.ID, p.Name, p.OwnerID, p.PageCount)
	var d Document
	err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.PageCount, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (q *Queries) GetDocument(ctx context.Context, id string) (Document, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, name, owner_id, page_count, created_at, updated_at
		FROM documents WHERE id = $1`, id)
	var d Document
	err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.PageCount, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (q *Queries) ListDocumentsForUser(ctx context.Context, ownerID string) ([]Document, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, name, owner_id, page_count, created_at, updated_at
		FROM documents WHERE owner_id = $1
		ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Name, &d.OwnerID, &d.PageCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (q *Queries) DeleteDocument(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

func (q *Queries) TouchDocument(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `UPDATE documents SET updated_at = now() WHERE id = $1`, id)
	return err
}

type CreateSnapshotParams struct {
	ID         string
	DocumentID string
	Version    int32
	Model      []byte
}

func (q *Queries) CreateSnapshot(ctx context.Context, p CreateSnapshotParams) (Snapshot, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO snapshots (id, document_id, version, model)
		VALUES ($1, $2, $3, $4)
		RETURNING id, document_id, version, model, created_at`,
		p.ID, p.DocumentID, p.Version, p.Model)
	var s Snapshot
	err := row.Scan(&s.ID, &s.DocumentID, &s.Version, &s.Model, &s.CreatedAt)
	return s, err
}

func (q *Queries) ListSnapshots(ctx context.Context, documentID string) ([]Snapshot, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, document_id, version, model, created_at
		FROM snapshots WHERE document_id = $1
		ORDER BY version`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.Version, &s.Model, &s.CreatedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

func (q *Queries) GetLatestSnapshot(ctx context.Context, documentID string) (Snapshot, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, document_id, version, model, created_at
		FROM snapshots WHERE document_id = $1
		ORDER BY version DESC LIMIT 1`, documentID)
	var s Snapshot
	err := row.Scan(&s.ID, &s.DocumentID, &s.Version, &s.Model, &s.CreatedAt)
	return s, err
}
