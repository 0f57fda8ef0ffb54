package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/logger"
)

// NotifyChannel is the channel the documents trigger notifies with the
// collection name as payload.
const NotifyChannel = "documents_changed"

const (
	insertDocumentSQL = `
		INSERT INTO documents (collection, data)
		VALUES ($1, $2::jsonb)
		RETURNING id::text`

	mergeDocumentSQL = `
		UPDATE documents SET data = data || $3::jsonb
		WHERE collection = $1 AND id = $2::uuid`

	deleteDocumentSQL = `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2::uuid`

	listDocumentsSQL = `
		SELECT id::text, data FROM documents
		WHERE collection = $1
		ORDER BY created_at, id`
)

// DocumentStore keeps collections of JSON documents in one PostgreSQL table.
// Subscriptions hold a pooled connection on LISTEN and re-read the collection
// whenever the trigger reports a change to it.
type DocumentStore struct {
	db        *DB
	logger    *logger.Logger
	retryWait time.Duration
}

func NewDocumentStore(db *DB, log *logger.Logger) *DocumentStore {
	return &DocumentStore{db: db, logger: log, retryWait: 2 * time.Second}
}

func (s *DocumentStore) AddDocument(ctx context.Context, collection string, data map[string]any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	var id string
	if err := s.db.QueryRow(ctx, insertDocumentSQL, collection, raw).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return id, nil
}

func (s *DocumentStore) UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error {
	docID, err := parseID(collection, id)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	tag, err := s.db.Pool.Exec(ctx, mergeDocumentSQL, collection, docID, raw)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return nil
}

func (s *DocumentStore) DeleteDocument(ctx context.Context, collection, id string) error {
	docID, err := parseID(collection, id)
	if err != nil {
		return err
	}

	tag, err := s.db.Pool.Exec(ctx, deleteDocumentSQL, collection, docID)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return nil
}

func (s *DocumentStore) ListDocuments(ctx context.Context, collection string) ([]docstore.Document, error) {
	rows, err := s.db.Query(ctx, listDocumentsSQL, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s document: %w", collection, err)
		}
		data, err := decodeData(raw)
		if err != nil {
			s.logger.Warn("document_undecodable", "Skipping document with invalid JSON", map[string]any{
				"collection": collection,
				"id":         id,
				"error":      err.Error(),
			})
			continue
		}
		docs = append(docs, docstore.Document{ID: id, Data: data})
	}
	return docs, rows.Err()
}

// Subscribe delivers the current collection, then a fresh copy after every
// committed change. A lost connection is re-established and followed by a full
// snapshot.
func (s *DocumentStore) Subscribe(ctx context.Context, collection string, onChange docstore.ChangeFunc) (func(), error) {
	if onChange == nil {
		return nil, fmt.Errorf("subscribe %s: nil change func", collection)
	}

	conn, err := s.listen(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.ListDocuments(ctx, collection)
	if err != nil {
		conn.Release()
		return nil, err
	}
	onChange(docs)

	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.forward(listenCtx, conn, collection, onChange)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (s *DocumentStore) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := s.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", NotifyChannel, err)
	}
	return conn, nil
}

// forward runs until ctx is cancelled, owning conn.
func (s *DocumentStore) forward(ctx context.Context, conn *pgxpool.Conn, collection string, onChange docstore.ChangeFunc) {
	defer func() {
		if conn != nil {
			// the connection goes back to the pool; it must not keep listening
			_, _ = conn.Exec(context.Background(), "UNLISTEN *")
			conn.Release()
		}
	}()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Error("listen_failed", "Lost document change feed, reconnecting", err, map[string]any{
				"collection": collection,
			})
			conn.Release()
			conn = s.reconnect(ctx)
			if conn == nil {
				return
			}
			s.deliver(ctx, collection, onChange)
			continue
		}

		if n.Payload != collection {
			continue
		}
		s.deliver(ctx, collection, onChange)
	}
}

func (s *DocumentStore) reconnect(ctx context.Context) *pgxpool.Conn {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.retryWait):
		}
		conn, err := s.listen(ctx)
		if err == nil {
			s.logger.Info("listen_restored", "Document change feed restored", nil)
			return conn
		}
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Error("listen_retry_failed", "Failed to restore document change feed", err, nil)
	}
}

func (s *DocumentStore) deliver(ctx context.Context, collection string, onChange docstore.ChangeFunc) {
	docs, err := s.ListDocuments(ctx, collection)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("snapshot_failed", "Failed to read collection after change", err, map[string]any{
				"collection": collection,
			})
		}
		return
	}
	onChange(docs)
}

func parseID(collection, id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		// ids are generated by the database, anything else cannot exist
		return "", fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return parsed.String(), nil
}

// decodeData keeps numbers as json.Number so money survives without float
// rounding.
func decodeData(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

var _ docstore.Store = (*DocumentStore)(nil)
