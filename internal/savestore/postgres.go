package savestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	insertSaveQuery = `
        INSERT INTO story_saves (token, owner, data, created_at)
        VALUES ($1, $2, $3, $4)
    `
	getSaveQuery = `
        SELECT token, owner, data, created_at
        FROM story_saves
        WHERE token = $1 AND owner = $2
    `
	latestSaveQuery = `
        SELECT token
        FROM story_saves
        WHERE owner = $1
        ORDER BY created_at DESC
        LIMIT 1
    `
)

// DBTX - общий интерфейс для *pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type saveRow struct {
	Token     uuid.UUID `db:"token"`
	Owner     string    `db:"owner"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
}

// PostgresStore хранит сохранения в таблице story_saves.
type PostgresStore struct {
	db     DBTX
	logger *zap.Logger
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db DBTX, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger.Named("PgSaveStore")}
}

func (s *PostgresStore) Save(ctx context.Context, owner string, rec Record) (string, error) {
	data, err := Encode(rec)
	if err != nil {
		return "", err
	}
	token := uuid.New()
	log := s.logger.With(zap.String("owner", owner), zap.String("token", token.String()))

	if _, err := s.db.Exec(ctx, insertSaveQuery, token, owner, data, time.Now().UTC()); err != nil {
		log.Error("Failed to insert save", zap.Error(err))
		return "", fmt.Errorf("insert save: %w", err)
	}
	log.Debug("Save stored", zap.String("node", rec.ChapterID+"/"+rec.NodeID))
	return token.String(), nil
}

func (s *PostgresStore) Load(ctx context.Context, owner, token string) (Record, error) {
	id, err := uuid.Parse(token)
	if err != nil {
		return Record{}, ErrNotFound
	}

	var row saveRow
	if err := pgxscan.Get(ctx, s.db, &row, getSaveQuery, id, owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		s.logger.Error("Failed to load save", zap.String("token", token), zap.Error(err))
		return Record{}, fmt.Errorf("load save %s: %w", token, err)
	}

	rec, err := Decode(row.Data)
	if err != nil {
		s.logger.Warn("Stored save is corrupt", zap.String("token", token), zap.Error(err))
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Latest(ctx context.Context, owner string) (string, error) {
	var token uuid.UUID
	err := s.db.QueryRow(ctx, latestSaveQuery, owner).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to query latest save", zap.String("owner", owner), zap.Error(err))
		return "", fmt.Errorf("latest save: %w", err)
	}
	return token.String(), nil
}
