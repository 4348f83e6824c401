package repository

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/kumss/console/internal/database"
)

// CachedPage is one list response as stored in the page cache. Results
// holds the JSON array of rows exactly as the backend returned them.
type CachedPage struct {
	Key       string
	Resource  string
	Count     int
	Next      *string
	Previous  *string
	Results   []byte
	FetchedAt time.Time
}

type pageBlob struct {
	Key      string  `cbor:"1,keyasint"`
	Count    int     `cbor:"2,keyasint"`
	Next     *string `cbor:"3,keyasint,omitempty"`
	Previous *string `cbor:"4,keyasint,omitempty"`
	Results  []byte  `cbor:"5,keyasint"`
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Digest maps a request key to the fixed-width row key.
func Digest(key string) string {
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func encodePage(p CachedPage) ([]byte, error) {
	raw, err := cbor.Marshal(pageBlob{
		Key:      p.Key,
		Count:    p.Count,
		Next:     p.Next,
		Previous: p.Previous,
		Results:  p.Results,
	})
	if err != nil {
		return nil, err
	}
	return encoder.EncodeAll(raw, nil), nil
}

func decodePage(payload []byte) (pageBlob, error) {
	var blob pageBlob
	raw, err := decoder.DecodeAll(payload, nil)
	if err != nil {
		return blob, fmt.Errorf("decompress page: %w", err)
	}
	if err := cbor.Unmarshal(raw, &blob); err != nil {
		return blob, fmt.Errorf("decode page: %w", err)
	}
	return blob, nil
}

// PageCacheRepo stores list pages keyed by request key.
type PageCacheRepo struct {
	db *sql.DB
}

func NewPageCacheRepo(db *sql.DB) *PageCacheRepo { return &PageCacheRepo{db: db} }

func (r *PageCacheRepo) Put(ctx context.Context, p CachedPage) error {
	if p.Key == "" || p.Resource == "" {
		return errors.New("page cache: key and resource are required")
	}
	payload, err := encodePage(p)
	if err != nil {
		return err
	}
	fetched := p.FetchedAt
	if fetched.IsZero() {
		fetched = database.Now()
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO page_cache(key, resource, payload, fetched_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET resource=excluded.resource, payload=excluded.payload, fetched_at=excluded.fetched_at;
	`, Digest(p.Key), p.Resource, payload, fetched.UTC())
	return err
}

// Get returns nil, nil when the key is not cached.
func (r *PageCacheRepo) Get(ctx context.Context, key string) (*CachedPage, error) {
	row := r.db.QueryRowContext(ctx, `SELECT resource, payload, fetched_at FROM page_cache WHERE key = ?`, Digest(key))
	var (
		p       CachedPage
		payload []byte
	)
	if err := row.Scan(&p.Resource, &payload, &p.FetchedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	blob, err := decodePage(payload)
	if err != nil {
		return nil, err
	}
	if blob.Key != key {
		// digest collision or foreign row
		return nil, nil
	}
	p.Key = blob.Key
	p.Count = blob.Count
	p.Next = blob.Next
	p.Previous = blob.Previous
	p.Results = blob.Results
	return &p, nil
}

// DeleteResource drops every cached page of a resource.
func (r *PageCacheRepo) DeleteResource(ctx context.Context, resource string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM page_cache WHERE resource = ?`, resource)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Prune drops pages fetched before cutoff.
func (r *PageCacheRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM page_cache WHERE fetched_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats reports the number of cached pages per resource.
func (r *PageCacheRepo) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT resource, COUNT(*) FROM page_cache GROUP BY resource ORDER BY resource`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			resource string
			n        int
		)
		if err := rows.Scan(&resource, &n); err != nil {
			return nil, err
		}
		out[resource] = n
	}
	return out, rows.Err()
}
