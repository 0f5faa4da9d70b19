package output

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const insertTimeout = 10 * time.Second

// Execer is the subset of a pgx pool used by PostgresOutput.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresOutput inserts each record as a row of the table named after its
// topic. Columns are the record's JSON keys.
type PostgresOutput struct {
	db Execer
}

func NewPostgresOutput(db Execer) *PostgresOutput {
	return &PostgresOutput{db: db}
}

func (p *PostgresOutput) WriteMessage(topic string, msg []byte) error {
	event, _, err := decodeMessage(msg)
	if err != nil {
		return err
	}

	query, args := insertStatement(topic, event)

	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", topic, err)
	}
	return nil
}

func (p *PostgresOutput) Close() error {
	p.db.Close()
	return nil
}

func insertStatement(table string, event map[string]interface{}) (string, []interface{}) {
	columns := headersOf(event)
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, column := range columns {
		quoted[i] = pgx.Identifier{column}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = columnValue(event[column])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))
	return query, args
}

func columnValue(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
