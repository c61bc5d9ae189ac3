package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"callcoach/logger"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

type DatabaseConnectProps struct {
	Logger *logger.LogMiddleware
}

// Database persists sanitized advisory reports (exam grades and after-call
// checklists) keyed by a caller-supplied session id. The advisory core never
// depends on it; the server only writes here when a store is configured.
type Database struct {
	conn   *sql.DB
	logger *logger.LogMiddleware
}

const reportsSchema = `
CREATE TABLE IF NOT EXISTS advisory_reports (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	score      INT NOT NULL,
	passed     BOOLEAN NOT NULL DEFAULT FALSE,
	report     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS advisory_reports_session_idx ON advisory_reports (session_id, created_at);
`

func Connect(ctx context.Context, args DatabaseConnectProps) (*Database, error) {
	tracer := otel.Tracer("postgres/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	connectRetries := 5
	var conn *sql.DB
	var err error
	var connStr string

	logger := args.Logger.Logger(ctx)

	for connectRetries > 0 {
		conn, err, connStr = getConnection(ctx)
		if err == nil {
			logger.Info("[Postgres] Database client started")
			break
		}
		connectRetries -= 1
		sleepTime := 5
		logger.Error(
			"[Postgres] Could not connect to Postgres. Retrying after sleeping.",
			zap.Error(err),
			zap.Int("Retries Left", connectRetries),
			zap.Int("Sleep Time", sleepTime),
			zap.String("Connection String", connStr))
		time.Sleep(time.Second * time.Duration(sleepTime))
	}

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if _, err := conn.ExecContext(ctx, reportsSchema); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to prepare advisory_reports schema: %w", err)
	}

	return &Database{conn: conn, logger: args.Logger}, nil
}

func getConnection(ctx context.Context) (*sql.DB, error, string) {
	tracer := otel.Tracer("postgres/getConnection")
	_, span := tracer.Start(ctx, "getConnection")
	defer span.End()

	host := os.Getenv("POSTGRES_DB_HOST")
	port := os.Getenv("POSTGRES_DB_PORT")
	user := os.Getenv("POSTGRES_DB_USER")
	password := os.Getenv("POSTGRES_DB_PASS")
	dbname := os.Getenv("POSTGRES_DB_NAME")

	sslMode := "disable"

	postgresqlDbInfo := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslMode,
	)

	db, err := sql.Open("postgres", postgresqlDbInfo)
	if err != nil {
		span.RecordError(err)
		return nil, err, postgresqlDbInfo
	}
	err = db.Ping()
	if err != nil {
		span.RecordError(err)
		return nil, err, postgresqlDbInfo
	}

	return db, nil, ""
}

type SaveReportProps struct {
	SessionID string
	Kind      string
	Score     int
	Passed    bool
	Report    any
}

// SaveReport stores one sanitized result record as JSON.
func (d *Database) SaveReport(ctx context.Context, args SaveReportProps) error {
	tracer := otel.Tracer("postgres/SaveReport")
	ctx, span := tracer.Start(ctx, "SaveReport")
	defer span.End()

	payload, err := json.Marshal(args.Report)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("could not encode report: %w", err)
	}

	_, err = d.conn.ExecContext(ctx,
		`INSERT INTO advisory_reports (session_id, kind, score, passed, report) VALUES ($1, $2, $3, $4, $5)`,
		args.SessionID, args.Kind, args.Score, args.Passed, payload)
	if err != nil {
		d.logger.Logger(ctx).Error(
			"[Postgres] Could not save advisory report",
			zap.Error(err),
			zap.String("session_id", args.SessionID),
			zap.String("kind", args.Kind),
		)
		span.RecordError(err)
		return fmt.Errorf("could not save advisory report")
	}

	return nil
}

type ReportRow struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Kind      string          `json:"kind"`
	Score     int             `json:"score"`
	Passed    bool            `json:"passed"`
	Report    json.RawMessage `json:"report"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListReports returns the stored reports for one session, oldest first.
func (d *Database) ListReports(ctx context.Context, sessionID string) ([]ReportRow, error) {
	tracer := otel.Tracer("postgres/ListReports")
	ctx, span := tracer.Start(ctx, "ListReports")
	defer span.End()

	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, session_id, kind, score, passed, report, created_at
		 FROM advisory_reports WHERE session_id = $1 ORDER BY created_at`,
		sessionID)
	if err != nil {
		d.logger.Logger(ctx).Error(
			"[Postgres] Could not list advisory reports",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		span.RecordError(err)
		return nil, fmt.Errorf("could not list advisory reports")
	}
	defer rows.Close()

	reports := []ReportRow{}
	for rows.Next() {
		var r ReportRow
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Kind, &r.Score, &r.Passed, &r.Report, &r.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("could not scan advisory report row")
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
