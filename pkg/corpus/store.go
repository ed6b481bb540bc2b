package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/CTAG07/ngramtext/pkg/markov"
)

// SetupSchema initializes the corpus table in the provided database. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const schemaDocuments = `
CREATE TABLE IF NOT EXISTS corpus_documents (
    doc_id INTEGER PRIMARY KEY,
    doc_name TEXT NOT NULL UNIQUE,
    body TEXT NOT NULL,
    token_count INTEGER NOT NULL,
    added_unix INTEGER NOT NULL
);
`
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaDocuments); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Document holds the metadata of one stored corpus text.
type Document struct {
	Id         int
	Name       string
	TokenCount int
	AddedAt    time.Time
}

// Store keeps raw corpus texts in a database so models can be rebuilt from
// them. Only text is stored; trained models always live in memory.
type Store struct {
	db              *sql.DB
	tokenizer       markov.Tokenizer
	stmtInsertDoc   *sql.Stmt
	stmtGetDoc      *sql.Stmt
	stmtListDocs    *sql.Stmt
	stmtGetBody     *sql.Stmt
	stmtListBodies  *sql.Stmt
	stmtRemoveDoc   *sql.Stmt
	stmtCorpusStats *sql.Stmt
	logger          *slog.Logger
}

// preparer is the part of *sql.DB that prepareAll needs.
type preparer interface {
	Prepare(query string) (*sql.Stmt, error)
}

// prepareAll prepares queries in order. If one fails, the statements already
// prepared are closed before the error is returned.
func prepareAll(db preparer, queries ...string) ([]*sql.Stmt, error) {
	stmts := make([]*sql.Stmt, 0, len(queries))
	for _, query := range queries {
		stmt, err := db.Prepare(query)
		if err != nil {
			for _, prepared := range stmts {
				_ = prepared.Close()
			}
			return nil, fmt.Errorf("could not prepare statement %q: %w", query, err)
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// NewStore creates a Store over db, which must already have the schema from
// SetupSchema. tokenizer is used to count and extract tokens.
func NewStore(db *sql.DB, tokenizer markov.Tokenizer) (*Store, error) {
	stmts, err := prepareAll(db,
		`INSERT INTO corpus_documents (doc_name, body, token_count, added_unix) VALUES (?, ?, ?, ?);`,
		`SELECT doc_id, token_count, added_unix FROM corpus_documents WHERE doc_name = ?;`,
		`SELECT doc_id, doc_name, token_count, added_unix FROM corpus_documents ORDER BY doc_id;`,
		`SELECT body FROM corpus_documents WHERE doc_name = ?;`,
		`SELECT body FROM corpus_documents ORDER BY doc_id;`,
		`DELETE FROM corpus_documents WHERE doc_name = ?;`,
		`SELECT COUNT(*), coalesce(SUM(token_count), 0) FROM corpus_documents;`,
	)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:              db,
		tokenizer:       tokenizer,
		stmtInsertDoc:   stmts[0],
		stmtGetDoc:      stmts[1],
		stmtListDocs:    stmts[2],
		stmtGetBody:     stmts[3],
		stmtListBodies:  stmts[4],
		stmtRemoveDoc:   stmts[5],
		stmtCorpusStats: stmts[6],
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtInsertDoc.Close()
	_ = s.stmtGetDoc.Close()
	_ = s.stmtListDocs.Close()
	_ = s.stmtGetBody.Close()
	_ = s.stmtListBodies.Close()
	_ = s.stmtRemoveDoc.Close()
	_ = s.stmtCorpusStats.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// AddDocument reads r fully and stores it under name. Names are unique; adding
// an existing name returns the database's constraint error.
func (s *Store) AddDocument(ctx context.Context, name string, r io.Reader) (Document, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("could not read document '%s': %w", name, err)
	}
	tokens, err := markov.ReadTokens(s.tokenizer, strings.NewReader(string(body)))
	if err != nil {
		return Document{}, fmt.Errorf("could not tokenize document '%s': %w", name, err)
	}

	added := time.Now()
	res, err := s.stmtInsertDoc.ExecContext(ctx, name, string(body), len(tokens), added.Unix())
	if err != nil {
		return Document{}, fmt.Errorf("could not insert document '%s': %w", name, err)
	}
	id, _ := res.LastInsertId()

	s.logger.InfoContext(ctx, "Document added",
		slog.String("doc_name", name),
		slog.Int("doc_id", int(id)),
		slog.Int("token_count", len(tokens)),
	)

	return Document{
		Id:         int(id),
		Name:       name,
		TokenCount: len(tokens),
		AddedAt:    time.Unix(added.Unix(), 0),
	}, nil
}

// GetDocument retrieves the metadata of a single document. A missing name
// returns an error wrapping sql.ErrNoRows.
func (s *Store) GetDocument(ctx context.Context, name string) (Document, error) {
	var doc Document
	var addedUnix int64
	err := s.stmtGetDoc.QueryRowContext(ctx, name).Scan(&doc.Id, &doc.TokenCount, &addedUnix)
	if err != nil {
		return Document{}, fmt.Errorf("could not get document '%s': %w", name, err)
	}
	doc.Name = name
	doc.AddedAt = time.Unix(addedUnix, 0)
	return doc, nil
}

// ListDocuments returns every document in insertion order.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.stmtListDocs.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	docs := make([]Document, 0)
	for rows.Next() {
		var doc Document
		var addedUnix int64
		if err = rows.Scan(&doc.Id, &doc.Name, &doc.TokenCount, &addedUnix); err != nil {
			return nil, err
		}
		doc.AddedAt = time.Unix(addedUnix, 0)
		docs = append(docs, doc)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// RemoveDocument deletes a document. A missing name returns an error
// wrapping sql.ErrNoRows.
func (s *Store) RemoveDocument(ctx context.Context, name string) error {
	res, err := s.stmtRemoveDoc.ExecContext(ctx, name)
	if err != nil {
		return fmt.Errorf("could not remove document '%s': %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("could not remove document '%s': %w", name, sql.ErrNoRows)
	}

	s.logger.InfoContext(ctx, "Document removed", slog.String("doc_name", name))
	return nil
}

// Tokens returns the token sequence of the named documents concatenated in the
// order given. With no names, every document is used in insertion order.
// Use Documents to train models, so no transition spans two documents.
func (s *Store) Tokens(ctx context.Context, names ...string) ([]string, error) {
	docs, err := s.Documents(ctx, names...)
	if err != nil {
		return nil, err
	}
	var tokens []string
	for _, docTokens := range docs {
		tokens = append(tokens, docTokens...)
	}
	return tokens, nil
}

// Documents returns the token sequence of each named document separately, in
// the order given. With no names, every document is used in insertion order.
// A missing name returns an error wrapping sql.ErrNoRows.
func (s *Store) Documents(ctx context.Context, names ...string) ([][]string, error) {
	var bodies []string
	if len(names) == 0 {
		rows, err := s.stmtListBodies.QueryContext(ctx)
		if err != nil {
			return nil, err
		}
		defer func(rows *sql.Rows) {
			_ = rows.Close()
		}(rows)
		for rows.Next() {
			var body string
			if err = rows.Scan(&body); err != nil {
				return nil, err
			}
			bodies = append(bodies, body)
		}
		if err = rows.Err(); err != nil {
			return nil, err
		}
	} else {
		for _, name := range names {
			var body string
			if err := s.stmtGetBody.QueryRowContext(ctx, name).Scan(&body); err != nil {
				return nil, fmt.Errorf("could not load document '%s': %w", name, err)
			}
			bodies = append(bodies, body)
		}
	}

	docs := make([][]string, 0, len(bodies))
	for _, body := range bodies {
		docTokens, err := markov.ReadTokens(s.tokenizer, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		docs = append(docs, docTokens)
	}
	return docs, nil
}

// Stats holds aggregated statistics for the whole corpus.
type Stats struct {
	Documents   int // The number of stored documents
	TotalTokens int // The sum of token counts over all documents
}

// GetStats returns a snapshot of corpus statistics.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.stmtCorpusStats.QueryRowContext(ctx).Scan(&stats.Documents, &stats.TotalTokens); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
