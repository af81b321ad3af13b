package persistence

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLStore implements domain.DataStore on a database connection. Queries
// join the unit of work in the context when there is one.
type SQLStore struct {
	conn    database.Connection
	dialect dialect
}

var _ domain.DataStore = (*SQLStore)(nil)

// NewSQLStore creates a store for a SQLite or PostgreSQL connection.
func NewSQLStore(conn database.Connection) *SQLStore {
	return &SQLStore{conn: conn, dialect: dialect{driver: conn.Driver()}}
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	return database.ExecutorFromContext(ctx, s.conn).Exec(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) database.Row {
	return database.ExecutorFromContext(ctx, s.conn).QueryRow(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return database.ExecutorFromContext(ctx, s.conn).Query(ctx, s.dialect.rebind(query), args...)
}

const instanceColumns = `id, user_id, task_id, predicted, actuals, completed_at, derived,
	trigger_state, fired_trigger, response, created_at, updated_at`

// Save persists an instance (create or update).
func (s *SQLStore) Save(ctx context.Context, inst *domain.TaskInstance) error {
	snap := inst.Snapshot()

	predicted, err := jsonValue(&snap.Predicted)
	if err != nil {
		return fmt.Errorf("encode predicted: %w", err)
	}
	actuals, err := jsonValue(snap.Actuals)
	if err != nil {
		return fmt.Errorf("encode actuals: %w", err)
	}
	derived, err := jsonValue(snap.Derived)
	if err != nil {
		return fmt.Errorf("encode derived scores: %w", err)
	}
	response, err := jsonValue(snap.Response)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO task_instances (`+instanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			predicted = excluded.predicted,
			actuals = excluded.actuals,
			completed_at = excluded.completed_at,
			derived = excluded.derived,
			trigger_state = excluded.trigger_state,
			fired_trigger = excluded.fired_trigger,
			response = excluded.response,
			updated_at = excluded.updated_at`,
		snap.ID.String(),
		snap.UserID.String(),
		snap.TaskID.String(),
		predicted,
		actuals,
		s.dialect.nullTime(snap.CompletedAt),
		derived,
		string(snap.TriggerState),
		snap.FiredTrigger,
		response,
		s.dialect.time(snap.CreatedAt),
		s.dialect.time(snap.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save instance: %w", err)
	}
	return nil
}

// FindByID returns nil, nil when the instance does not exist.
func (s *SQLStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.TaskInstance, error) {
	row := s.queryRow(ctx, `SELECT `+instanceColumns+` FROM task_instances WHERE id = ?`, id.String())
	inst, err := scanInstance(row)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find instance: %w", err)
	}
	return inst, nil
}

// FindByTask lists a user's instances of a task, oldest first.
func (s *SQLStore) FindByTask(ctx context.Context, userID, taskID uuid.UUID) ([]*domain.TaskInstance, error) {
	rows, err := s.query(ctx, `
		SELECT `+instanceColumns+` FROM task_instances
		WHERE user_id = ? AND task_id = ?
		ORDER BY created_at, id`,
		userID.String(), taskID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("find instances by task: %w", err)
	}
	return collectInstances(rows)
}

// Delete removes an instance.
func (s *SQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.exec(ctx, `DELETE FROM task_instances WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	if n == 0 {
		return domain.ErrInstanceNotFound
	}
	return nil
}

// LoadHistory returns the latest window completions of a task, oldest first.
func (s *SQLStore) LoadHistory(ctx context.Context, userID, taskID uuid.UUID, window int) (domain.CompletionHistory, error) {
	if window <= 0 {
		window = domain.DefaultHistoryWindow
	}

	rows, err := s.query(ctx, `
		SELECT `+instanceColumns+` FROM task_instances
		WHERE user_id = ? AND task_id = ? AND completed_at IS NOT NULL
		ORDER BY completed_at DESC, id DESC
		LIMIT ?`,
		userID.String(), taskID.String(), window,
	)
	if err != nil {
		return domain.CompletionHistory{}, fmt.Errorf("load history: %w", err)
	}
	latest, err := collectInstances(rows)
	if err != nil {
		return domain.CompletionHistory{}, fmt.Errorf("load history: %w", err)
	}
	slices.Reverse(latest)

	var total int
	err = s.queryRow(ctx, `
		SELECT COUNT(*) FROM task_instances
		WHERE user_id = ? AND task_id = ? AND completed_at IS NOT NULL`,
		userID.String(), taskID.String(),
	).Scan(&total)
	if err != nil {
		return domain.CompletionHistory{}, fmt.Errorf("count history: %w", err)
	}

	return domain.NewCompletionHistory(userID, taskID, latest, total), nil
}

// CountCompletions counts a task's completions strictly before the given time.
func (s *SQLStore) CountCompletions(ctx context.Context, userID, taskID uuid.UUID, before time.Time) (int, error) {
	var n int
	err := s.queryRow(ctx, `
		SELECT COUNT(*) FROM task_instances
		WHERE user_id = ? AND task_id = ? AND completed_at IS NOT NULL AND completed_at < ?`,
		userID.String(), taskID.String(), s.dialect.time(before),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return n, nil
}

// ListTaskIDs returns every task with at least one completion.
func (s *SQLStore) ListTaskIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.query(ctx, `
		SELECT DISTINCT task_id FROM task_instances
		WHERE user_id = ? AND completed_at IS NOT NULL
		ORDER BY task_id`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadSurveyProfile returns an empty profile when none was saved.
func (s *SQLStore) LoadSurveyProfile(ctx context.Context, userID uuid.UUID) (domain.SurveyProfile, error) {
	list := stringList{postgres: s.dialect.driver == database.DriverPostgres}
	var updatedAt dbTime

	err := s.queryRow(ctx, `SELECT struggles, updated_at FROM survey_profiles WHERE user_id = ?`,
		userID.String(),
	).Scan(list.target(), &updatedAt)
	if database.IsNoRows(err) {
		return domain.EmptySurveyProfile(userID), nil
	}
	if err != nil {
		return domain.SurveyProfile{}, fmt.Errorf("load survey profile: %w", err)
	}

	struggles := make([]domain.Struggle, 0, len(list.values))
	for _, v := range list.values {
		struggles = append(struggles, domain.Struggle(v))
	}
	profile, err := domain.NewSurveyProfile(userID, struggles)
	if err != nil {
		return domain.SurveyProfile{}, fmt.Errorf("load survey profile: %w", err)
	}
	profile.UpdatedAt = updatedAt.Time
	return profile, nil
}

// SaveSurveyProfile replaces the stored profile of a user.
func (s *SQLStore) SaveSurveyProfile(ctx context.Context, profile domain.SurveyProfile) error {
	tags := make([]string, 0)
	for _, st := range profile.Struggles() {
		tags = append(tags, string(st))
	}
	struggles, err := s.dialect.strings(tags)
	if err != nil {
		return fmt.Errorf("encode struggles: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO survey_profiles (user_id, struggles, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			struggles = excluded.struggles,
			updated_at = excluded.updated_at`,
		profile.UserID.String(), struggles, s.dialect.time(profile.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save survey profile: %w", err)
	}
	return nil
}

// PersistTriggerRecord stores a trigger firing.
func (s *SQLStore) PersistTriggerRecord(ctx context.Context, record domain.TriggerRecord) error {
	_, err := s.exec(ctx, `
		INSERT INTO trigger_records (id, user_id, instance_id, trigger_id, fired_at)
		VALUES (?, ?, ?, ?, ?)`,
		record.ID.String(),
		record.UserID.String(),
		record.InstanceID.String(),
		record.TriggerID,
		s.dialect.time(record.FiredAt),
	)
	if err != nil {
		return fmt.Errorf("persist trigger record: %w", err)
	}
	return nil
}

// LoadTriggerRecords returns the user's records fired at or after since.
func (s *SQLStore) LoadTriggerRecords(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.TriggerRecord, error) {
	rows, err := s.query(ctx, `
		SELECT id, user_id, instance_id, trigger_id, fired_at FROM trigger_records
		WHERE user_id = ? AND fired_at >= ?
		ORDER BY fired_at, id`,
		userID.String(), s.dialect.time(since),
	)
	if err != nil {
		return nil, fmt.Errorf("load trigger records: %w", err)
	}
	defer rows.Close()

	var records []domain.TriggerRecord
	for rows.Next() {
		var (
			id, user, instance string
			record             domain.TriggerRecord
			firedAt            dbTime
		)
		if err := rows.Scan(&id, &user, &instance, &record.TriggerID, &firedAt); err != nil {
			return nil, fmt.Errorf("scan trigger record: %w", err)
		}
		if err := parseIDs(
			idField{id, &record.ID},
			idField{user, &record.UserID},
			idField{instance, &record.InstanceID},
		); err != nil {
			return nil, fmt.Errorf("scan trigger record: %w", err)
		}
		record.FiredAt = firedAt.Time
		records = append(records, record)
	}
	return records, rows.Err()
}

// PruneTriggerRecords deletes records fired before the cutoff.
func (s *SQLStore) PruneTriggerRecords(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.exec(ctx, `DELETE FROM trigger_records WHERE fired_at < ?`, s.dialect.time(before))
	if err != nil {
		return 0, fmt.Errorf("prune trigger records: %w", err)
	}
	return result.RowsAffected()
}

// PersistScore upserts the latest score of a scope.
func (s *SQLStore) PersistScore(ctx context.Context, score domain.Score) error {
	_, err := s.exec(ctx, `
		INSERT INTO scores (user_id, scope, grit, productivity, composite, instances, version, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, scope) DO UPDATE SET
			grit = excluded.grit,
			productivity = excluded.productivity,
			composite = excluded.composite,
			instances = excluded.instances,
			version = excluded.version,
			computed_at = excluded.computed_at`,
		score.UserID.String(),
		score.Scope.String(),
		score.Grit,
		score.Productivity,
		score.Composite,
		score.Instances,
		int64(score.Version),
		s.dialect.time(score.ComputedAt),
	)
	if err != nil {
		return fmt.Errorf("persist score: %w", err)
	}
	return nil
}

// FindScore returns the last persisted score of a scope.
func (s *SQLStore) FindScore(ctx context.Context, userID uuid.UUID, scope domain.Scope) (*domain.Score, error) {
	score := domain.Score{UserID: userID, Scope: scope}
	var (
		version    int64
		computedAt dbTime
	)
	err := s.queryRow(ctx, `
		SELECT grit, productivity, composite, instances, version, computed_at
		FROM scores WHERE user_id = ? AND scope = ?`,
		userID.String(), scope.String(),
	).Scan(&score.Grit, &score.Productivity, &score.Composite, &score.Instances, &version, &computedAt)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find score: %w", err)
	}
	score.Version = uint64(version)
	score.ComputedAt = computedAt.Time
	return &score, nil
}

func collectInstances(rows database.Rows) ([]*domain.TaskInstance, error) {
	defer rows.Close()

	var out []*domain.TaskInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func scanInstance(row database.Row) (*domain.TaskInstance, error) {
	var (
		id, user, task string
		state          string
		snap           domain.InstanceSnapshot
		actuals        domain.Actuals
		derived        domain.DerivedScores
		response       domain.TriggerResponse
		completedAt    dbTime
		createdAt      dbTime
		updatedAt      dbTime
	)
	predictedCol := jsonColumn{dst: &snap.Predicted}
	actualsCol := jsonColumn{dst: &actuals}
	derivedCol := jsonColumn{dst: &derived}
	responseCol := jsonColumn{dst: &response}

	err := row.Scan(
		&id, &user, &task,
		&predictedCol, &actualsCol, &completedAt, &derivedCol,
		&state, &snap.FiredTrigger, &responseCol,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if !predictedCol.Valid {
		return nil, errors.New("instance without predicted values")
	}
	if err := parseIDs(
		idField{id, &snap.ID},
		idField{user, &snap.UserID},
		idField{task, &snap.TaskID},
	); err != nil {
		return nil, err
	}

	if actualsCol.Valid {
		snap.Actuals = &actuals
	}
	if derivedCol.Valid {
		snap.Derived = &derived
	}
	if responseCol.Valid {
		snap.Response = &response
	}
	snap.CompletedAt = completedAt.Ptr()
	snap.TriggerState = domain.TriggerState(state)
	snap.CreatedAt = createdAt.Time
	snap.UpdatedAt = updatedAt.Time

	return domain.RehydrateTaskInstance(snap), nil
}

type idField struct {
	raw string
	dst *uuid.UUID
}

func parseIDs(fields ...idField) error {
	for _, f := range fields {
		id, err := uuid.Parse(f.raw)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", f.raw, err)
		}
		*f.dst = id
	}
	return nil
}
