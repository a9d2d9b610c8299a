package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/playblyza/blyza/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds backup manager configuration. The passphrase comes from the
// environment; backups are unattended, so there is no interactive key entry.
type Config struct {
	Endpoint   string
	Bucket     string
	Region     string
	AccessKey  string
	SecretKey  string
	Passphrase string
	DBPath     string
	Interval   time.Duration
}

// Manager uploads encrypted database snapshots to S3-compatible storage on
// a fixed interval.
type Manager struct {
	cfg     Config
	db      *sql.DB
	backups *store.BackupStore
	client  s3Client
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. It is inert until Start is called.
func NewManager(cfg Config, db *sql.DB, backups *store.BackupStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		db:      db,
		backups: backups,
		logger:  logger,
	}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		m.client = newS3Client(cfg)
	}
	return m
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the scheduled backup loop.
func (m *Manager) Start(ctx context.Context) {
	if m.client == nil {
		return
	}

	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	interval := m.cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunOnce(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RunOnce checkpoints the WAL, encrypts a copy of the database, and uploads
// it. It returns the id of the history record.
func (m *Manager) RunOnce(ctx context.Context) (int64, error) {
	if m.client == nil {
		return 0, fmt.Errorf("backup not configured")
	}

	key := fmt.Sprintf("snapshots/%s-%s.db.enc",
		time.Now().UTC().Format("2006-01-02T150405Z"), uuid.NewString())

	record, err := m.backups.Create(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	size, err := m.upload(ctx, key)
	if err != nil {
		if markErr := m.backups.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			m.logger.Error("mark backup failed", "error", markErr)
		}
		return 0, err
	}

	if err := m.backups.MarkComplete(ctx, record.ID, size); err != nil {
		return 0, fmt.Errorf("mark backup complete: %w", err)
	}

	m.logger.Info("backup uploaded", "key", key, "size_bytes", size)
	return record.ID, nil
}

func (m *Manager) upload(ctx context.Context, key string) (int64, error) {
	// Checkpoint so the main db file holds every committed write
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return 0, fmt.Errorf("wal checkpoint: %w", err)
	}

	plaintext, err := os.ReadFile(m.cfg.DBPath)
	if err != nil {
		return 0, fmt.Errorf("read database: %w", err)
	}

	encrypted, err := Encrypt(plaintext, m.cfg.Passphrase)
	if err != nil {
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(encrypted),
		ContentLength: aws.Int64(int64(len(encrypted))),
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}

	return int64(len(encrypted)), nil
}
