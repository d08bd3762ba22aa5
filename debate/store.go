package debate

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/boardroom-ai/boardroom/internal/ids"
)

const sessionIDLength = 12

const defaultMaxIterations = 3

// Store provides typed access to persisted sessions, outputs, and exchanges.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	status TEXT NOT NULL,
	start_time INTEGER NOT NULL,
	end_time INTEGER NOT NULL DEFAULT 0,
	duration_minutes INTEGER NOT NULL DEFAULT 0,
	max_iterations INTEGER NOT NULL,
	current_iteration INTEGER NOT NULL,
	current_phase TEXT NOT NULL,
	participating_agents TEXT NOT NULL,
	consensus_reached INTEGER NOT NULL DEFAULT 0,
	winning_strategy TEXT NOT NULL DEFAULT '',
	total_outputs INTEGER NOT NULL DEFAULT 0,
	total_exchanges INTEGER NOT NULL DEFAULT 0,
	total_word_count INTEGER NOT NULL DEFAULT 0,
	iterations_completed INTEGER NOT NULL DEFAULT 0,
	phase_completed_at TEXT NOT NULL DEFAULT '{}',
	final_report TEXT NOT NULL DEFAULT '',
	voting_results TEXT NOT NULL DEFAULT '',
	consensus_analysis TEXT NOT NULL DEFAULT '',
	session_folder TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_status_created ON sessions(status, created_at DESC);

CREATE TABLE IF NOT EXISTS agent_outputs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	agent_name TEXT NOT NULL,
	phase TEXT NOT NULL,
	round_number INTEGER NOT NULL,
	content TEXT NOT NULL,
	word_count INTEGER NOT NULL,
	metadata TEXT NOT NULL DEFAULT '',
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outputs_session ON agent_outputs(session_id, id);

CREATE TABLE IF NOT EXISTS exchanges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	round_number INTEGER NOT NULL,
	questioner TEXT NOT NULL,
	responder TEXT NOT NULL,
	question TEXT NOT NULL,
	response TEXT NOT NULL,
	question_word_count INTEGER NOT NULL,
	response_word_count INTEGER NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, id);
`

// Open opens (creating if necessary) a session store at the given path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	// A single connection sidesteps SQLITE_BUSY between request handlers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure session store: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create session store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateOptions configures session creation.
type CreateOptions struct {
	Topic         string
	MaxIterations int
	// SessionFolder overrides the derived folder label when non-empty.
	SessionFolder string
	StartedAt     time.Time
}

// CreateSession stores a new in-progress session with all six personas
// assigned, currentIteration 1, and currentPhase research.
func (s *Store) CreateSession(opts CreateOptions) (Session, error) {
	topic := strings.TrimSpace(opts.Topic)
	if topic == "" {
		return Session{}, ErrTopicRequired
	}

	startedAt := opts.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	folder := opts.SessionFolder
	if strings.TrimSpace(folder) == "" {
		folder = FolderLabel(topic, startedAt)
	}

	created := Session{
		ID:                  ids.GenerateWithTimestamp(topic, startedAt, sessionIDLength),
		Topic:               topic,
		Status:              StatusRunning,
		StartTime:           startedAt,
		MaxIterations:       maxIterations,
		CurrentIteration:    1,
		CurrentPhase:        PhaseResearch,
		ParticipatingAgents: Agents(),
		Summary:             Summary{PhaseCompletedAt: map[Phase]time.Time{}},
		SessionFolder:       folder,
		CreatedAt:           startedAt,
		UpdatedAt:           startedAt,
	}

	agents, err := json.Marshal(created.ParticipatingAgents)
	if err != nil {
		return Session{}, fmt.Errorf("marshal participating agents: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (
			id, topic, status, start_time, max_iterations, current_iteration,
			current_phase, participating_agents, session_folder, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.Topic, string(created.Status), created.StartTime.UnixNano(),
		created.MaxIterations, created.CurrentIteration, string(created.CurrentPhase),
		string(agents), created.SessionFolder, created.CreatedAt.UnixNano(), created.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return created, nil
}

// FindSession returns the session with the given id.
func (s *Store) FindSession(sessionID string) (Session, error) {
	return findSession(s.db, sessionID)
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func findSession(q querier, sessionID string) (Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Session{}, ErrSessionNotFound
	}
	rows, err := q.Query(sessionSelect+" WHERE id = ?", sessionID)
	if err != nil {
		return Session{}, fmt.Errorf("query session: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Session{}, fmt.Errorf("query session: %w", err)
		}
		return Session{}, ErrSessionNotFound
	}
	return scanSession(rows)
}

// UpdateOptions configures session patches. Nil fields mean "do not update".
type UpdateOptions struct {
	Status              *Status
	CurrentIteration    *int
	CurrentPhase        *Phase
	IterationsCompleted *int
	ConsensusReached    *bool
	WinningStrategy     *string
}

// UpdateSession applies a partial update to an existing session.
func (s *Store) UpdateSession(sessionID string, opts UpdateOptions, updatedAt time.Time) (Session, error) {
	if opts.Status != nil {
		normalized := Status(strings.ToLower(string(*opts.Status)))
		opts.Status = &normalized
		if !opts.Status.IsValid() {
			return Session{}, formatInvalidStatusError(*opts.Status)
		}
	}
	if opts.CurrentPhase != nil {
		normalized := Phase(strings.ToLower(string(*opts.CurrentPhase)))
		opts.CurrentPhase = &normalized
		if !opts.CurrentPhase.IsValid() {
			return Session{}, formatInvalidPhaseError(*opts.CurrentPhase)
		}
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	var updated Session
	err := s.withSession(sessionID, func(session *Session) error {
		if opts.Status != nil {
			// Terminal sessions cannot reopen.
			if session.Status.Terminal() && !opts.Status.Terminal() {
				return &ConflictError{SessionID: sessionID, Status: session.Status}
			}
			session.Status = *opts.Status
			if session.Status.Terminal() && session.EndTime.IsZero() {
				session.EndTime = updatedAt
				session.DurationMinutes = durationMinutes(session.StartTime, updatedAt)
			}
		}
		if opts.CurrentIteration != nil {
			session.CurrentIteration = *opts.CurrentIteration
		}
		if opts.CurrentPhase != nil {
			session.CurrentPhase = *opts.CurrentPhase
		}
		if opts.IterationsCompleted != nil {
			session.Summary.IterationsCompleted = *opts.IterationsCompleted
		}
		if opts.ConsensusReached != nil {
			session.ConsensusReached = *opts.ConsensusReached
		}
		if opts.WinningStrategy != nil {
			session.WinningStrategy = *opts.WinningStrategy
		}
		session.UpdatedAt = updatedAt
		updated = *session
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return updated, nil
}

// FinishSession transitions a session to the given terminal status. A session
// that is already terminal keeps its original status and end time; the call
// still succeeds so racing exit handlers and stop requests never error.
func (s *Store) FinishSession(sessionID string, status Status, endedAt time.Time) (Session, error) {
	if !status.Terminal() {
		return Session{}, formatInvalidStatusError(status)
	}
	if endedAt.IsZero() {
		endedAt = time.Now()
	}
	var finished Session
	err := s.withSession(sessionID, func(session *Session) error {
		if session.Status.Terminal() {
			finished = *session
			return nil
		}
		session.Status = status
		session.EndTime = endedAt
		session.DurationMinutes = durationMinutes(session.StartTime, endedAt)
		session.UpdatedAt = endedAt
		finished = *session
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return finished, nil
}

// CompleteOptions carries the worker's closing payload.
type CompleteOptions struct {
	VotingResults     []VotingResult
	ConsensusAnalysis *ConsensusAnalysis
	// FinalReportContent is optional; when present a FinalReport is recorded.
	FinalReportContent      string
	CollaborativelyApproved bool
}

// CompleteSession marks a session completed and records its voting results,
// consensus analysis, and optional final report.
func (s *Store) CompleteSession(sessionID string, opts CompleteOptions, completedAt time.Time) (Session, error) {
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	var completed Session
	err := s.withSession(sessionID, func(session *Session) error {
		session.Status = StatusCompleted
		session.EndTime = completedAt
		session.DurationMinutes = durationMinutes(session.StartTime, completedAt)
		session.VotingResults = opts.VotingResults
		if opts.ConsensusAnalysis != nil {
			session.ConsensusAnalysis = opts.ConsensusAnalysis
			session.ConsensusReached = opts.ConsensusAnalysis.ConsensusReached
			session.WinningStrategy = opts.ConsensusAnalysis.WinningAgent
		}
		if strings.TrimSpace(opts.FinalReportContent) != "" {
			session.FinalReport = &FinalReport{
				Content:                 opts.FinalReportContent,
				WordCount:               CountWords(opts.FinalReportContent),
				GeneratedAt:             completedAt,
				CollaborativelyApproved: opts.CollaborativelyApproved,
			}
		}
		session.UpdatedAt = completedAt
		completed = *session
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return completed, nil
}

// ListFilter configures which sessions to return.
type ListFilter struct {
	Page   int
	Limit  int
	Status *Status
}

// ListSessions returns one page of sessions sorted newest-first by creation
// time, with total-count page metadata.
func (s *Store) ListSessions(filter ListFilter) (SessionPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	if filter.Status != nil {
		normalized := Status(strings.ToLower(string(*filter.Status)))
		filter.Status = &normalized
		if !filter.Status.IsValid() {
			return SessionPage{}, formatInvalidStatusError(*filter.Status)
		}
	}

	where := ""
	args := []any{}
	if filter.Status != nil {
		where = " WHERE status = ?"
		args = append(args, string(*filter.Status))
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions"+where, args...).Scan(&total); err != nil {
		return SessionPage{}, fmt.Errorf("count sessions: %w", err)
	}

	listArgs := append(append([]any{}, args...), limit, (page-1)*limit)
	rows, err := s.db.Query(sessionSelect+where+" ORDER BY created_at DESC, id LIMIT ? OFFSET ?", listArgs...)
	if err != nil {
		return SessionPage{}, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return SessionPage{}, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return SessionPage{}, fmt.Errorf("list sessions: %w", err)
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return SessionPage{Sessions: sessions, Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

// AppendOutputOptions describes one persona contribution to record.
type AppendOutputOptions struct {
	SessionID   string
	AgentName   string
	Phase       Phase
	RoundNumber int
	Content     string
	Metadata    map[string]any
	Timestamp   time.Time
}

// AppendOutput records an agent output and bumps the parent session's summary
// counters and per-phase completion timestamp.
func (s *Store) AppendOutput(opts AppendOutputOptions) (AgentOutput, error) {
	if strings.TrimSpace(opts.AgentName) == "" {
		return AgentOutput{}, fmt.Errorf("%w: agent name", ErrFieldRequired)
	}
	if strings.TrimSpace(opts.Content) == "" {
		return AgentOutput{}, fmt.Errorf("%w: content", ErrFieldRequired)
	}
	phase := Phase(strings.ToLower(string(opts.Phase)))
	if !phase.IsValid() {
		return AgentOutput{}, formatInvalidPhaseError(opts.Phase)
	}
	timestamp := opts.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	output := AgentOutput{
		SessionID:   opts.SessionID,
		AgentName:   opts.AgentName,
		Phase:       phase,
		RoundNumber: opts.RoundNumber,
		Content:     opts.Content,
		WordCount:   CountWords(opts.Content),
		Metadata:    opts.Metadata,
		Timestamp:   timestamp,
	}

	metadata := ""
	if len(opts.Metadata) > 0 {
		encoded, err := json.Marshal(opts.Metadata)
		if err != nil {
			return AgentOutput{}, fmt.Errorf("marshal output metadata: %w", err)
		}
		metadata = string(encoded)
	}

	err := s.inTx(func(tx *sql.Tx) error {
		session, err := findSession(tx, opts.SessionID)
		if err != nil {
			return err
		}
		result, err := tx.Exec(`
			INSERT INTO agent_outputs (
				session_id, agent_name, phase, round_number, content, word_count, metadata, timestamp
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			output.SessionID, output.AgentName, string(output.Phase), output.RoundNumber,
			output.Content, output.WordCount, metadata, timestamp.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert agent output: %w", err)
		}
		output.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("agent output id: %w", err)
		}

		if session.Summary.PhaseCompletedAt == nil {
			session.Summary.PhaseCompletedAt = map[Phase]time.Time{}
		}
		session.Summary.TotalAgentOutputs++
		session.Summary.TotalWordCount += output.WordCount
		session.Summary.PhaseCompletedAt[phase] = timestamp
		session.UpdatedAt = timestamp
		return saveSession(tx, session)
	})
	if err != nil {
		return AgentOutput{}, err
	}
	return output, nil
}

// AppendExchangeOptions describes one question/response pair to record.
type AppendExchangeOptions struct {
	SessionID   string
	RoundNumber int
	Questioner  string
	Responder   string
	Question    string
	Response    string
	Timestamp   time.Time
}

// AppendExchange records a debate exchange and bumps the parent session's
// summary counters.
func (s *Store) AppendExchange(opts AppendExchangeOptions) (Exchange, error) {
	for label, value := range map[string]string{
		"questioner": opts.Questioner,
		"responder":  opts.Responder,
		"question":   opts.Question,
		"response":   opts.Response,
	} {
		if strings.TrimSpace(value) == "" {
			return Exchange{}, fmt.Errorf("%w: %s", ErrFieldRequired, label)
		}
	}
	timestamp := opts.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	exchange := Exchange{
		SessionID:         opts.SessionID,
		RoundNumber:       opts.RoundNumber,
		Questioner:        opts.Questioner,
		Responder:         opts.Responder,
		Question:          opts.Question,
		Response:          opts.Response,
		QuestionWordCount: CountWords(opts.Question),
		ResponseWordCount: CountWords(opts.Response),
		Timestamp:         timestamp,
	}

	err := s.inTx(func(tx *sql.Tx) error {
		session, err := findSession(tx, opts.SessionID)
		if err != nil {
			return err
		}
		result, err := tx.Exec(`
			INSERT INTO exchanges (
				session_id, round_number, questioner, responder, question, response,
				question_word_count, response_word_count, timestamp
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			exchange.SessionID, exchange.RoundNumber, exchange.Questioner, exchange.Responder,
			exchange.Question, exchange.Response, exchange.QuestionWordCount,
			exchange.ResponseWordCount, timestamp.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert exchange: %w", err)
		}
		exchange.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("exchange id: %w", err)
		}

		session.Summary.TotalExchanges++
		session.Summary.TotalWordCount += exchange.QuestionWordCount + exchange.ResponseWordCount
		session.UpdatedAt = timestamp
		return saveSession(tx, session)
	})
	if err != nil {
		return Exchange{}, err
	}
	return exchange, nil
}

// Outputs returns all agent outputs for a session in persisted order.
func (s *Store) Outputs(sessionID string) ([]AgentOutput, error) {
	return s.queryOutputs("SELECT id, session_id, agent_name, phase, round_number, content, word_count, metadata, timestamp FROM agent_outputs WHERE session_id = ? ORDER BY id", sessionID)
}

// OutputsSince returns agent outputs recorded after the given time, in
// persisted order. Used by the polling backstop.
func (s *Store) OutputsSince(sessionID string, since time.Time) ([]AgentOutput, error) {
	return s.queryOutputs("SELECT id, session_id, agent_name, phase, round_number, content, word_count, metadata, timestamp FROM agent_outputs WHERE session_id = ? AND timestamp > ? ORDER BY id", sessionID, since.UnixNano())
}

func (s *Store) queryOutputs(query string, args ...any) ([]AgentOutput, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query agent outputs: %w", err)
	}
	defer rows.Close()

	outputs := make([]AgentOutput, 0)
	for rows.Next() {
		var output AgentOutput
		var phase, metadata string
		var timestamp int64
		if err := rows.Scan(
			&output.ID, &output.SessionID, &output.AgentName, &phase, &output.RoundNumber,
			&output.Content, &output.WordCount, &metadata, &timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan agent output: %w", err)
		}
		output.Phase = Phase(phase)
		output.Timestamp = time.Unix(0, timestamp)
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &output.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal output metadata: %w", err)
			}
		}
		outputs = append(outputs, output)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query agent outputs: %w", err)
	}
	return outputs, nil
}

// Exchanges returns all exchanges for a session in persisted order.
func (s *Store) Exchanges(sessionID string) ([]Exchange, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, round_number, questioner, responder, question, response,
			question_word_count, response_word_count, timestamp
		FROM exchanges WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	exchanges := make([]Exchange, 0)
	for rows.Next() {
		var exchange Exchange
		var timestamp int64
		if err := rows.Scan(
			&exchange.ID, &exchange.SessionID, &exchange.RoundNumber, &exchange.Questioner,
			&exchange.Responder, &exchange.Question, &exchange.Response,
			&exchange.QuestionWordCount, &exchange.ResponseWordCount, &timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		exchange.Timestamp = time.Unix(0, timestamp)
		exchanges = append(exchanges, exchange)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	return exchanges, nil
}

// MarkOrphans fails every in-progress session. Called once at startup, before
// any worker is spawned, so every in-progress record is an orphan from a
// prior crash. Returns the number of sessions marked.
func (s *Store) MarkOrphans(now time.Time) (int, error) {
	if now.IsZero() {
		now = time.Now()
	}
	result, err := s.db.Exec(`
		UPDATE sessions SET
			status = ?,
			end_time = ?,
			duration_minutes = CAST(round((? - start_time) / 60000000000.0) AS INTEGER),
			updated_at = ?
		WHERE status = ?`,
		string(StatusFailed), now.UnixNano(), now.UnixNano(), now.UnixNano(), string(StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("mark orphaned sessions: %w", err)
	}
	marked, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark orphaned sessions: %w", err)
	}
	return int(marked), nil
}

// Stats aggregates history across all sessions.
func (s *Store) Stats() (Stats, error) {
	var stats Stats
	var consensusCount int
	row := s.db.QueryRow(`
		SELECT COUNT(*),
			COUNT(CASE WHEN status = ? THEN 1 END),
			COUNT(CASE WHEN consensus_reached = 1 THEN 1 END),
			COALESCE(AVG(CASE WHEN status = ? THEN duration_minutes END), 0)
		FROM sessions`, string(StatusCompleted), string(StatusCompleted))
	if err := row.Scan(&stats.TotalDebates, &stats.CompletedDebates, &consensusCount, &stats.AverageDuration); err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	if stats.CompletedDebates > 0 {
		stats.ConsensusRate = consensusCount * 100 / stats.CompletedDebates
	}

	rows, err := s.db.Query(`
		SELECT winning_strategy, COUNT(*) FROM sessions
		WHERE winning_strategy != '' GROUP BY winning_strategy`)
	if err != nil {
		return Stats{}, fmt.Errorf("query winner distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var agent string
		var count int
		if err := rows.Scan(&agent, &count); err != nil {
			return Stats{}, fmt.Errorf("scan winner distribution: %w", err)
		}
		if stats.WinningAgents == nil {
			stats.WinningAgents = map[string]int{}
		}
		stats.WinningAgents[agent] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("query winner distribution: %w", err)
	}
	return stats, nil
}

func (s *Store) withSession(sessionID string, mutate func(*Session) error) error {
	return s.inTx(func(tx *sql.Tx) error {
		session, err := findSession(tx, sessionID)
		if err != nil {
			return err
		}
		if err := mutate(&session); err != nil {
			return err
		}
		return saveSession(tx, session)
	})
}

func (s *Store) inTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			return errors.Join(err, rollbackErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const sessionSelect = `
	SELECT id, topic, status, start_time, end_time, duration_minutes, max_iterations,
		current_iteration, current_phase, participating_agents, consensus_reached,
		winning_strategy, total_outputs, total_exchanges, total_word_count,
		iterations_completed, phase_completed_at, final_report, voting_results,
		consensus_analysis, session_folder, created_at, updated_at
	FROM sessions`

func scanSession(rows *sql.Rows) (Session, error) {
	var session Session
	var status, phase, agents, phaseCompleted, finalReport, votingResults, consensusAnalysis string
	var startTime, endTime, createdAt, updatedAt int64
	var consensusReached int
	if err := rows.Scan(
		&session.ID, &session.Topic, &status, &startTime, &endTime, &session.DurationMinutes,
		&session.MaxIterations, &session.CurrentIteration, &phase, &agents, &consensusReached,
		&session.WinningStrategy, &session.Summary.TotalAgentOutputs, &session.Summary.TotalExchanges,
		&session.Summary.TotalWordCount, &session.Summary.IterationsCompleted, &phaseCompleted,
		&finalReport, &votingResults, &consensusAnalysis, &session.SessionFolder,
		&createdAt, &updatedAt,
	); err != nil {
		return Session{}, fmt.Errorf("scan session: %w", err)
	}

	session.Status = Status(status)
	session.CurrentPhase = Phase(phase)
	session.ConsensusReached = consensusReached != 0
	session.StartTime = time.Unix(0, startTime)
	if endTime != 0 {
		session.EndTime = time.Unix(0, endTime)
	}
	session.CreatedAt = time.Unix(0, createdAt)
	session.UpdatedAt = time.Unix(0, updatedAt)

	if err := json.Unmarshal([]byte(agents), &session.ParticipatingAgents); err != nil {
		return Session{}, fmt.Errorf("unmarshal participating agents: %w", err)
	}
	if phaseCompleted != "" && phaseCompleted != "{}" {
		if err := json.Unmarshal([]byte(phaseCompleted), &session.Summary.PhaseCompletedAt); err != nil {
			return Session{}, fmt.Errorf("unmarshal phase completion times: %w", err)
		}
	}
	if finalReport != "" {
		session.FinalReport = &FinalReport{}
		if err := json.Unmarshal([]byte(finalReport), session.FinalReport); err != nil {
			return Session{}, fmt.Errorf("unmarshal final report: %w", err)
		}
	}
	if votingResults != "" {
		if err := json.Unmarshal([]byte(votingResults), &session.VotingResults); err != nil {
			return Session{}, fmt.Errorf("unmarshal voting results: %w", err)
		}
	}
	if consensusAnalysis != "" {
		session.ConsensusAnalysis = &ConsensusAnalysis{}
		if err := json.Unmarshal([]byte(consensusAnalysis), session.ConsensusAnalysis); err != nil {
			return Session{}, fmt.Errorf("unmarshal consensus analysis: %w", err)
		}
	}
	return session, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func saveSession(e execer, session Session) error {
	marshalOrEmpty := func(value any, empty bool) (string, error) {
		if empty {
			return "", nil
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}

	phaseCompleted, err := marshalOrEmpty(session.Summary.PhaseCompletedAt, len(session.Summary.PhaseCompletedAt) == 0)
	if err != nil {
		return fmt.Errorf("marshal phase completion times: %w", err)
	}
	if phaseCompleted == "" {
		phaseCompleted = "{}"
	}
	finalReport, err := marshalOrEmpty(session.FinalReport, session.FinalReport == nil)
	if err != nil {
		return fmt.Errorf("marshal final report: %w", err)
	}
	votingResults, err := marshalOrEmpty(session.VotingResults, len(session.VotingResults) == 0)
	if err != nil {
		return fmt.Errorf("marshal voting results: %w", err)
	}
	consensusAnalysis, err := marshalOrEmpty(session.ConsensusAnalysis, session.ConsensusAnalysis == nil)
	if err != nil {
		return fmt.Errorf("marshal consensus analysis: %w", err)
	}

	consensusReached := 0
	if session.ConsensusReached {
		consensusReached = 1
	}
	endTime := int64(0)
	if !session.EndTime.IsZero() {
		endTime = session.EndTime.UnixNano()
	}

	_, err = e.Exec(`
		UPDATE sessions SET
			status = ?, end_time = ?, duration_minutes = ?, current_iteration = ?,
			current_phase = ?, consensus_reached = ?, winning_strategy = ?,
			total_outputs = ?, total_exchanges = ?, total_word_count = ?,
			iterations_completed = ?, phase_completed_at = ?, final_report = ?,
			voting_results = ?, consensus_analysis = ?, updated_at = ?
		WHERE id = ?`,
		string(session.Status), endTime, session.DurationMinutes, session.CurrentIteration,
		string(session.CurrentPhase), consensusReached, session.WinningStrategy,
		session.Summary.TotalAgentOutputs, session.Summary.TotalExchanges,
		session.Summary.TotalWordCount, session.Summary.IterationsCompleted,
		phaseCompleted, finalReport, votingResults, consensusAnalysis,
		session.UpdatedAt.UnixNano(), session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func durationMinutes(start, end time.Time) int {
	if start.IsZero() || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Round(time.Minute) / time.Minute)
}
