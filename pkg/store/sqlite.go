package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"callmonitor/pkg/errors"
	"callmonitor/pkg/models"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	call_id    TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	agent_id   TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calls_status_started ON calls(status, started_at);
CREATE INDEX IF NOT EXISTS idx_calls_agent ON calls(agent_id);

CREATE TABLE IF NOT EXISTS agents (
	agent_id TEXT PRIMARY KEY,
	doc      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	alert_id   TEXT PRIMARY KEY,
	call_id    TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_status_created ON alerts(status, created_at);
`

// SQLiteStore stores each document as JSON next to the columns it is
// filtered by
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// OpenSQLite opens or creates the database at path with WAL journaling and a
// busy timeout, then applies the schema
func OpenSQLite(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s on %s: %w", pragma, path, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema on %s: %w", path, err)
	}

	logger.WithField("path", path).Info("SQLite store opened")
	return &SQLiteStore{db: db, logger: logger}, nil
}

type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, arg interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, arg)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func callWhere(f CallFilter) *where {
	w := &where{}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.AgentID != "" {
		w.add("agent_id = ?", f.AgentID)
	}
	if !f.StartedAfter.IsZero() {
		w.add("started_at >= ?", f.StartedAfter.UnixNano())
	}
	if !f.StartedBefore.IsZero() {
		w.add("started_at < ?", f.StartedBefore.UnixNano())
	}
	return w
}

func alertWhere(f AlertFilter) *where {
	w := &where{}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.CallID != "" {
		w.add("call_id = ?", f.CallID)
	}
	if !f.CreatedAfter.IsZero() {
		w.add("created_at >= ?", f.CreatedAfter.UnixNano())
	}
	return w
}

func orderAndPage(column string, opts ListOptions) string {
	dir := "DESC"
	if opts.Sort == OldestFirst {
		dir = "ASC"
	}
	q := fmt.Sprintf(" ORDER BY %s %s", column, dir)
	limit := -1
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	skip := opts.Skip
	if skip < 0 {
		skip = 0
	}
	return q + fmt.Sprintf(" LIMIT %d OFFSET %d", limit, skip)
}

func (s *SQLiteStore) insert(ctx context.Context, query string, args ...interface{}) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) InsertCall(ctx context.Context, call *models.Call) error {
	doc, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("encode call %s: %w", call.CallID, err)
	}
	ok, err := s.insert(ctx,
		`INSERT INTO calls (call_id, status, agent_id, started_at, doc) VALUES (?, ?, ?, ?, ?) ON CONFLICT(call_id) DO NOTHING`,
		call.CallID, string(call.Status), call.Agent.ID, call.StartedAt.UnixNano(), string(doc))
	if err != nil {
		return errors.Wrap(err, "failed to insert call", map[string]interface{}{"call_id": call.CallID})
	}
	if !ok {
		return errors.Wrap(errors.ErrAlreadyExists, fmt.Sprintf("call %s already exists", call.CallID))
	}
	return nil
}

func decodeCall(doc string) (*models.Call, error) {
	var c models.Call
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("decode call: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) GetCall(ctx context.Context, callID string) (*models.Call, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM calls WHERE call_id = ?`, callID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.NewCallNotFound(callID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get call", map[string]interface{}{"call_id": callID})
	}
	return decodeCall(doc)
}

func (s *SQLiteStore) ListCalls(ctx context.Context, filter CallFilter, opts ListOptions) ([]*models.Call, error) {
	w := callWhere(filter)
	rows, err := s.db.QueryContext(ctx, "SELECT doc FROM calls"+w.String()+orderAndPage("started_at", opts), w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list calls")
	}
	defer rows.Close()

	out := []*models.Call{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.Wrap(err, "failed to scan call")
		}
		c, err := decodeCall(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, project(c, opts))
	}
	return out, rows.Err()
}

func (s *SQLiteStore) count(ctx context.Context, table string, w *where) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+w.String(), w.args...).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count "+table)
	}
	return n, nil
}

func (s *SQLiteStore) CountCalls(ctx context.Context, filter CallFilter) (int, error) {
	return s.count(ctx, "calls", callWhere(filter))
}

// UpdateCall reads, patches and rewrites the document in one transaction
func (s *SQLiteStore) UpdateCall(ctx context.Context, callID string, update CallUpdate) (*models.Call, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin call update")
	}
	defer tx.Rollback()

	var doc string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM calls WHERE call_id = ?`, callID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.NewCallNotFound(callID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load call", map[string]interface{}{"call_id": callID})
	}
	c, err := decodeCall(doc)
	if err != nil {
		return nil, err
	}
	if update.RequireStatus != "" && c.Status != update.RequireStatus {
		return nil, errors.Wrap(errors.ErrCallNotActive, fmt.Sprintf("call %s is %s", callID, c.Status))
	}

	update.apply(c)
	encoded, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode call %s: %w", callID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE calls SET status = ?, doc = ? WHERE call_id = ?`,
		string(c.Status), string(encoded), callID); err != nil {
		return nil, errors.Wrap(err, "failed to update call", map[string]interface{}{"call_id": callID})
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit call update", map[string]interface{}{"call_id": callID})
	}
	return c, nil
}

func (s *SQLiteStore) delete(ctx context.Context, table string, w *where) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+w.String(), w.args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete from "+table)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) DeleteCalls(ctx context.Context, filter CallFilter) (int, error) {
	return s.delete(ctx, "calls", callWhere(filter))
}

func (s *SQLiteStore) InsertAgent(ctx context.Context, agent *models.Agent) error {
	doc, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("encode agent %s: %w", agent.AgentID, err)
	}
	ok, err := s.insert(ctx, `INSERT INTO agents (agent_id, doc) VALUES (?, ?) ON CONFLICT(agent_id) DO NOTHING`,
		agent.AgentID, string(doc))
	if err != nil {
		return errors.Wrap(err, "failed to insert agent", map[string]interface{}{"agent_id": agent.AgentID})
	}
	if !ok {
		return errors.Wrap(errors.ErrAlreadyExists, fmt.Sprintf("agent %s already exists", agent.AgentID))
	}
	return nil
}

func decodeAgent(doc string) (*models.Agent, error) {
	var a models.Agent
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("decode agent: %w", err)
	}
	return &a, nil
}

func (s *SQLiteStore) GetAgent(ctx context.Context, agentID string) (*models.Agent, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM agents WHERE agent_id = ?`, agentID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.NewAgentNotFound(agentID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get agent", map[string]interface{}{"agent_id": agentID})
	}
	return decodeAgent(doc)
}

func (s *SQLiteStore) ListAgents(ctx context.Context) ([]*models.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM agents ORDER BY agent_id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list agents")
	}
	defer rows.Close()

	out := []*models.Agent{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.Wrap(err, "failed to scan agent")
		}
		a, err := decodeAgent(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateAgent(ctx context.Context, agentID string, update AgentUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin agent update")
	}
	defer tx.Rollback()

	var doc string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM agents WHERE agent_id = ?`, agentID).Scan(&doc)
	if err == sql.ErrNoRows {
		return errors.NewAgentNotFound(agentID)
	}
	if err != nil {
		return errors.Wrap(err, "failed to load agent", map[string]interface{}{"agent_id": agentID})
	}
	a, err := decodeAgent(doc)
	if err != nil {
		return err
	}
	a.Status = update.Status
	a.CurrentCallID = update.CurrentCallID

	encoded, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode agent %s: %w", agentID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE agents SET doc = ? WHERE agent_id = ?`, string(encoded), agentID); err != nil {
		return errors.Wrap(err, "failed to update agent", map[string]interface{}{"agent_id": agentID})
	}
	return tx.Commit()
}

func (s *SQLiteStore) InsertAlert(ctx context.Context, alert *models.Alert) error {
	doc, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", alert.AlertID, err)
	}
	ok, err := s.insert(ctx,
		`INSERT INTO alerts (alert_id, call_id, status, created_at, doc) VALUES (?, ?, ?, ?, ?) ON CONFLICT(alert_id) DO NOTHING`,
		alert.AlertID, alert.CallID, string(alert.Status), alert.CreatedAt.UnixNano(), string(doc))
	if err != nil {
		return errors.Wrap(err, "failed to insert alert", map[string]interface{}{"alert_id": alert.AlertID})
	}
	if !ok {
		return errors.Wrap(errors.ErrAlreadyExists, fmt.Sprintf("alert %s already exists", alert.AlertID))
	}
	return nil
}

func decodeAlert(doc string) (*models.Alert, error) {
	var a models.Alert
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	return &a, nil
}

func (s *SQLiteStore) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM alerts WHERE alert_id = ?`, alertID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.NewAlertNotFound(alertID, "Alert not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get alert", map[string]interface{}{"alert_id": alertID})
	}
	return decodeAlert(doc)
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, filter AlertFilter, opts ListOptions) ([]*models.Alert, error) {
	w := alertWhere(filter)
	rows, err := s.db.QueryContext(ctx, "SELECT doc FROM alerts"+w.String()+orderAndPage("created_at", opts), w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list alerts")
	}
	defer rows.Close()

	out := []*models.Alert{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.Wrap(err, "failed to scan alert")
		}
		a, err := decodeAlert(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountAlerts(ctx context.Context, filter AlertFilter) (int, error) {
	return s.count(ctx, "alerts", alertWhere(filter))
}

func (s *SQLiteStore) UpdateAlert(ctx context.Context, alertID string, update AlertUpdate) (*models.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin alert update")
	}
	defer tx.Rollback()

	var doc string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM alerts WHERE alert_id = ?`, alertID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.NewAlertNotFound(alertID, "Alert not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load alert", map[string]interface{}{"alert_id": alertID})
	}
	a, err := decodeAlert(doc)
	if err != nil {
		return nil, err
	}
	if update.RequireStatus != "" && a.Status != update.RequireStatus {
		return nil, errors.Wrap(errors.ErrFailedPrecondition, fmt.Sprintf("alert %s is %s", alertID, a.Status))
	}

	update.apply(a)
	encoded, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode alert %s: %w", alertID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE alerts SET status = ?, doc = ? WHERE alert_id = ?`,
		string(a.Status), string(encoded), alertID); err != nil {
		return nil, errors.Wrap(err, "failed to update alert", map[string]interface{}{"alert_id": alertID})
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit alert update", map[string]interface{}{"alert_id": alertID})
	}
	return a, nil
}

func (s *SQLiteStore) DeleteAlerts(ctx context.Context, filter AlertFilter) (int, error) {
	return s.delete(ctx, "alerts", alertWhere(filter))
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
