package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"tgrelay/internal/migrations"
	"tgrelay/internal/models"
	"tgrelay/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the forward audit log: every terminal forward outcome is
// recorded here so operators can inspect what was relayed and what failed.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to read schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) SaveForwardRecord(ctx context.Context, record *models.ForwardRecord) error {
	encryptedCaption, err := d.encryptor.EncryptIfEnabled(record.Caption)
	if err != nil {
		return fmt.Errorf("failed to encrypt caption: %w", err)
	}

	query := `
		INSERT INTO forward_records (
			source_chat_id, source_msg_id, media_group_id,
			unit_size, caption, attempts, status, error, forwarded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return retryableDBOperation(ctx, func() error {
		_, execErr := d.db.ExecContext(ctx, query,
			record.SourceChatID,
			record.SourceMsgID,
			record.MediaGroupID,
			record.UnitSize,
			encryptedCaption,
			record.Attempts,
			record.Status,
			record.Error,
			record.ForwardedAt,
		)
		return execErr
	}, "save forward record")
}

// GetForwardRecordsBySource returns the audit rows for a given source
// message, newest first. A flushed-and-reused media group produces multiple
// rows, one per forwarded unit.
func (d *Database) GetForwardRecordsBySource(ctx context.Context, sourceChatID int64, sourceMsgID int) ([]*models.ForwardRecord, error) {
	query := `
		SELECT id, source_chat_id, source_msg_id, media_group_id,
		       unit_size, caption, attempts, status, error, forwarded_at, created_at
		FROM forward_records
		WHERE source_chat_id = ? AND source_msg_id = ?
		ORDER BY created_at DESC
	`

	rows, err := d.db.QueryContext(ctx, query, sourceChatID, sourceMsgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query forward records: %w", err)
	}
	defer rows.Close()

	return d.scanForwardRecords(rows)
}

// GetRecentForwardRecords returns the most recent audit rows, newest first.
func (d *Database) GetRecentForwardRecords(ctx context.Context, limit int) ([]*models.ForwardRecord, error) {
	query := `
		SELECT id, source_chat_id, source_msg_id, media_group_id,
		       unit_size, caption, attempts, status, error, forwarded_at, created_at
		FROM forward_records
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query forward records: %w", err)
	}
	defer rows.Close()

	return d.scanForwardRecords(rows)
}

func (d *Database) scanForwardRecords(rows *sql.Rows) ([]*models.ForwardRecord, error) {
	var records []*models.ForwardRecord
	for rows.Next() {
		var record models.ForwardRecord
		if err := rows.Scan(
			&record.ID,
			&record.SourceChatID,
			&record.SourceMsgID,
			&record.MediaGroupID,
			&record.UnitSize,
			&record.Caption,
			&record.Attempts,
			&record.Status,
			&record.Error,
			&record.ForwardedAt,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan forward record: %w", err)
		}

		caption, err := d.encryptor.DecryptIfEnabled(record.Caption)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt caption: %w", err)
		}
		record.Caption = caption

		records = append(records, &record)
	}
	return records, rows.Err()
}

// CleanupOldRecords deletes audit rows older than the retention window.
func (d *Database) CleanupOldRecords(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	return retryableDBOperation(ctx, func() error {
		_, err := d.db.ExecContext(ctx,
			`DELETE FROM forward_records WHERE created_at < ?`, cutoff)
		return err
	}, "cleanup old records")
}
