// Package docstore reads and maintains the persistent document
// metadata records, keeping each record's signed download URL fresh.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"docchat/internal/config"
	"docchat/internal/models"
	"docchat/internal/storage"
)

// refreshWindow is how close to expiry a signed URL may get before it
// is regenerated during a load.
const refreshWindow = 24 * time.Hour

// Document is the documents table row.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID                 string    `bun:"id,pk"`
	StoragePath        string    `bun:"storage_path"`
	SignedURL          string    `bun:"signed_url"`
	SignedURLExpiresAt time.Time `bun:"signed_url_expires_at,nullzero"`
	OriginalName       string    `bun:"original_name"`
	FileSize           int64     `bun:"file_size"`
	ContentType        string    `bun:"content_type"`
	Alias              string    `bun:"alias"`
	Description        string    `bun:"description"`
	Area               string    `bun:"area"`
	CreatedAt          time.Time `bun:"created_at,nullzero"`
	UpdatedAt          time.Time `bun:"updated_at,nullzero"`
}

// ConnectDB opens the Postgres connection behind the metadata store.
func ConnectDB(cfg *config.DatabaseConfig) *bun.DB {
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// Store reads document records and regenerates signed URLs through the
// object storage signer.
type Store struct {
	db     *bun.DB
	signer storage.Signer
	urlTTL time.Duration
	now    func() time.Time
}

func NewStore(db *bun.DB, signer storage.Signer, urlTTL time.Duration) *Store {
	return &Store{db: db, signer: signer, urlTTL: urlTTL, now: time.Now}
}

// Init creates the documents table when missing.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx)
	return err
}

// FetchAll loads every document record, refreshing signed URLs that are
// missing or about to expire. A record whose URL cannot be regenerated
// keeps its stale value; only the outer query can fail the load.
func (s *Store) FetchAll(ctx context.Context) ([]models.ExternalDocument, error) {
	var rows []Document
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("loading document records: %w", err)
	}

	records := make([]models.ExternalDocument, 0, len(rows))
	for i := range rows {
		records = append(records, s.ensureFreshURL(ctx, &rows[i]))
	}
	log.Info().Int("documents", len(records)).Msg("Document records loaded")
	return records, nil
}

// FetchByID loads one record with the same freshness handling.
func (s *Store) FetchByID(ctx context.Context, id string) (*models.ExternalDocument, error) {
	var row Document
	err := s.db.NewSelect().Model(&row).Where("d.id = ?", id).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("loading document %s: %w", id, err)
	}
	record := s.ensureFreshURL(ctx, &row)
	return &record, nil
}

// Register records a freshly uploaded document, signing its first
// download URL.
func (s *Store) Register(ctx context.Context, row *Document) (*models.ExternalDocument, error) {
	now := s.now()
	row.CreatedAt = now
	row.UpdatedAt = now

	if s.signer != nil && row.StoragePath != "" {
		signedURL, err := s.signer.SignedURL(ctx, row.StoragePath, s.urlTTL)
		if err != nil {
			log.Warn().Err(err).Str("documentId", row.ID).Msg("Initial signed URL generation failed")
		} else {
			row.SignedURL = signedURL
			row.SignedURLExpiresAt = now.Add(s.urlTTL)
		}
	}

	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fmt.Errorf("registering document %s: %w", row.ID, err)
	}
	record := toExternalDocument(row)
	return &record, nil
}

// UpdateSignedURL persists a regenerated URL and its expiry.
func (s *Store) UpdateSignedURL(ctx context.Context, id, signedURL string, expiresAt time.Time) error {
	_, err := s.db.NewUpdate().
		Model((*Document)(nil)).
		Set("signed_url = ?", signedURL).
		Set("signed_url_expires_at = ?", expiresAt).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ensureFreshURL regenerates the record's signed URL when it is missing
// or expires within refreshWindow, persisting the new one. Regeneration
// failures degrade to the stale (or empty) URL.
func (s *Store) ensureFreshURL(ctx context.Context, row *Document) models.ExternalDocument {
	record := toExternalDocument(row)

	if !needsRefresh(row.SignedURL, row.SignedURLExpiresAt, s.now()) {
		return record
	}
	if row.StoragePath == "" || s.signer == nil {
		return record
	}

	signedURL, err := s.signer.SignedURL(ctx, row.StoragePath, s.urlTTL)
	if err != nil {
		log.Warn().Err(err).Str("documentId", row.ID).Msg("Signed URL regeneration failed, keeping stale URL")
		return record
	}

	expiresAt := s.now().Add(s.urlTTL)
	if err := s.UpdateSignedURL(ctx, row.ID, signedURL, expiresAt); err != nil {
		// The fresh URL is still valid even if persisting it failed.
		log.Warn().Err(err).Str("documentId", row.ID).Msg("Failed to persist regenerated signed URL")
	}

	record.SignedURL = signedURL
	record.SignedURLExpiresAt = expiresAt
	return record
}

// needsRefresh reports whether a signed URL is absent or expires within
// refreshWindow of now.
func needsRefresh(signedURL string, expiresAt, now time.Time) bool {
	if signedURL == "" || expiresAt.IsZero() {
		return true
	}
	return !expiresAt.After(now.Add(refreshWindow))
}

func toExternalDocument(row *Document) models.ExternalDocument {
	return models.ExternalDocument{
		ID:                 row.ID,
		SignedURL:          row.SignedURL,
		FileName:           row.OriginalName,
		FileSize:           row.FileSize,
		ContentType:        row.ContentType,
		StoragePath:        row.StoragePath,
		SignedURLExpiresAt: row.SignedURLExpiresAt,
		Alias:              row.Alias,
		Description:        row.Description,
		Area:               row.Area,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}
