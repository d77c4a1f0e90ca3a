package store

import (
  "context"
  "errors"
  "fmt"

  "github.com/google/uuid"
  "github.com/jackc/pgx/v5"
  "github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
  db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
  return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
  if s.db == nil {
    return errors.New("db not configured")
  }
  _, err := s.db.Exec(ctx, `
create table if not exists backup_files (
  id text primary key,
  owner text not null,
  name text not null,
  content text not null,
  created_at timestamptz not null default now()
);

create index if not exists backup_files_owner_name_idx on backup_files (owner, name);
`)
  return err
}

func (s *PostgresStore) Replace(ctx context.Context, owner, name, content string) (File, error) {
  tx, err := s.db.Begin(ctx)
  if err != nil {
    return File{}, err
  }
  defer tx.Rollback(ctx)

  if _, err := tx.Exec(ctx, "delete from backup_files where owner=$1 and name=$2", owner, name); err != nil {
    return File{}, fmt.Errorf("delete previous backup: %w", err)
  }

  file := File{Owner: owner, Name: name, Content: content, Size: len(content)}
  err = tx.QueryRow(ctx, `
insert into backup_files (id, owner, name, content)
values ($1, $2, $3, $4)
returning id, created_at
`, uuid.NewString(), owner, name, content).Scan(&file.ID, &file.CreatedAt)
  if err != nil {
    return File{}, fmt.Errorf("insert backup: %w", err)
  }

  if err := tx.Commit(ctx); err != nil {
    return File{}, err
  }
  return file, nil
}

func (s *PostgresStore) Get(ctx context.Context, owner, name string) (File, error) {
  file := File{Owner: owner, Name: name}
  err := s.db.QueryRow(ctx, `
select id, content, created_at from backup_files
where owner=$1 and name=$2
order by created_at desc limit 1`, owner, name).Scan(&file.ID, &file.Content, &file.CreatedAt)
  if errors.Is(err, pgx.ErrNoRows) {
    return File{}, ErrNotFound
  }
  if err != nil {
    return File{}, err
  }
  file.Size = len(file.Content)
  return file, nil
}
