package store

import (
  "context"
  "errors"
  "time"

  "dokwallet-manager/internal/lightning"

  "github.com/jackc/pgx/v5"
  "github.com/jackc/pgx/v5/pgtype"
  "github.com/jackc/pgx/v5/pgxpool"
)

const (
  defaultJournalLimit = 100
  maxJournalLimit = 500
)

// Journal persists lightning write-path outcomes to postgres.
type Journal struct {
  db *pgxpool.Pool
}

func NewJournal(db *pgxpool.Pool) *Journal {
  return &Journal{db: db}
}

func (j *Journal) EnsureSchema(ctx context.Context) error {
  if j.db == nil {
    return errors.New("db not configured")
  }
  _, err := j.db.Exec(ctx, `
create table if not exists lightning_activity (
  id bigserial primary key,
  occurred_at timestamptz not null,
  kind text not null,
  wallet text not null,
  reference text,
  amount_sat bigint not null default 0,
  fee_sat bigint not null default 0,
  status text not null,
  detail text
);

create index if not exists lightning_activity_wallet_idx on lightning_activity (wallet, occurred_at desc);
`)
  return err
}

func (j *Journal) Record(ctx context.Context, a lightning.Activity) error {
  _, err := j.db.Exec(ctx, `
insert into lightning_activity (occurred_at, kind, wallet, reference, amount_sat, fee_sat, status, detail)
values ($1,$2,$3,$4,$5,$6,$7,$8)
`, a.OccurredAt, a.Kind, a.Wallet, nullableString(a.Reference), a.AmountSats, a.FeeSats, a.Status, nullableString(a.Detail))
  return err
}

// List returns the newest entries for wallet, a key fingerprint as recorded
// by the lightning service.
func (j *Journal) List(ctx context.Context, wallet string, limit int) ([]lightning.Activity, error) {
  if limit <= 0 {
    limit = defaultJournalLimit
  }
  if limit > maxJournalLimit {
    limit = maxJournalLimit
  }

  rows, err := j.db.Query(ctx, `
select occurred_at, kind, wallet, reference, amount_sat, fee_sat, status, detail
from lightning_activity
where wallet=$1
order by occurred_at desc, id desc
limit $2`, wallet, limit)
  if err != nil {
    return nil, err
  }
  defer rows.Close()

  items := []lightning.Activity{}
  for rows.Next() {
    a, err := scanActivity(rows)
    if err != nil {
      return nil, err
    }
    items = append(items, a)
  }
  return items, rows.Err()
}

func scanActivity(row pgx.Row) (lightning.Activity, error) {
  var a lightning.Activity
  var reference, detail pgtype.Text
  var occurredAt time.Time
  if err := row.Scan(&occurredAt, &a.Kind, &a.Wallet, &reference, &a.AmountSats, &a.FeeSats, &a.Status, &detail); err != nil {
    return lightning.Activity{}, err
  }
  a.OccurredAt = occurredAt
  a.Reference = reference.String
  a.Detail = detail.String
  return a, nil
}
