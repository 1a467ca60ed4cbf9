package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/database"
	apperrors "github.com/kbukum/dagflow/errors"
)

// RunRecord is a row of dag_runs. The graph snapshot is stored as JSON.
type RunRecord struct {
	ID          string    `gorm:"primaryKey;size:64"`
	GraphName   string    `gorm:"size:255;index"`
	Graph       string    `gorm:"type:text"`
	Status      string    `gorm:"size:32;index"`
	Reason      string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
	CompletedAt *time.Time
}

// TableName returns the table name.
func (RunRecord) TableName() string { return "dag_runs" }

// TaskRecord is a row of dag_task_states, keyed by run and task id.
type TaskRecord struct {
	RunID       string `gorm:"primaryKey;size:64"`
	TaskID      string `gorm:"primaryKey;size:128"`
	Status      string `gorm:"size:32"`
	Result      string `gorm:"type:text"`
	Failure     string `gorm:"type:text"`
	Attempts    int
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

// TableName returns the table name.
func (TaskRecord) TableName() string { return "dag_task_states" }

// Models returns the models to pass to database.Component.WithAutoMigrate.
func Models() []interface{} {
	return []interface{}{&RunRecord{}, &TaskRecord{}}
}

// SQLStore is a dag.RunStore on a GORM database.
type SQLStore struct {
	db *database.DB
}

var _ dag.RunStore = (*SQLStore)(nil)

// NewSQLStore creates a store on db. The tables must exist; see Models.
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

// SaveRun upserts the run row and every task row in one transaction.
func (s *SQLStore) SaveRun(ctx context.Context, run *dag.DagRun) error {
	rec, err := toRunRecord(run)
	if err != nil {
		return apperrors.Internal(err)
	}
	tasks := make([]TaskRecord, 0, len(run.Tasks))
	for _, id := range sortedIDs(run.Tasks) {
		tr, err := toTaskRecord(run.ID, *run.Tasks[id])
		if err != nil {
			return apperrors.Internal(err)
		}
		tasks = append(tasks, tr)
	}

	err = s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(tasks, 100).Error
	})
	if err != nil {
		return database.FromDatabase(err, "run")
	}
	return nil
}

// SaveTaskStatus upserts one task row and bumps the run's updated_at.
func (s *SQLStore) SaveTaskStatus(ctx context.Context, runID, taskID string, state dag.TaskState) error {
	state.TaskID = taskID
	tr, err := toTaskRecord(runID, state)
	if err != nil {
		return apperrors.Internal(err)
	}

	err = s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&RunRecord{}).Where("id = ?", runID).Update("updated_at", state.UpdatedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.RunNotFound(runID)
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&tr).Error
	})
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return database.FromDatabase(err, "task state")
}

// LoadRun reads a run and its task rows.
func (s *SQLStore) LoadRun(ctx context.Context, runID string) (*dag.DagRun, error) {
	var rec RunRecord
	err := s.db.WithContext(ctx).Where("id = ?", runID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RunNotFound(runID)
	}
	if err != nil {
		return nil, database.FromDatabase(err, "run")
	}
	runs, err := s.assemble(ctx, []RunRecord{rec})
	if err != nil {
		return nil, err
	}
	return runs[0], nil
}

// LoadNonTerminalRuns reads every run whose status is pending or running,
// oldest first.
func (s *SQLStore) LoadNonTerminalRuns(ctx context.Context) ([]*dag.DagRun, error) {
	var recs []RunRecord
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{string(dag.RunPending), string(dag.RunRunning)}).
		Order("created_at, id").
		Find(&recs).Error
	if err != nil {
		return nil, database.FromDatabase(err, "run")
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return s.assemble(ctx, recs)
}

func (s *SQLStore) assemble(ctx context.Context, recs []RunRecord) ([]*dag.DagRun, error) {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	var rows []TaskRecord
	if err := s.db.WithContext(ctx).Where("run_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "task state")
	}
	byRun := make(map[string][]TaskRecord, len(recs))
	for _, row := range rows {
		byRun[row.RunID] = append(byRun[row.RunID], row)
	}

	out := make([]*dag.DagRun, 0, len(recs))
	for _, rec := range recs {
		run, err := fromRecords(rec, byRun[rec.ID])
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		out = append(out, run)
	}
	return out, nil
}

func toRunRecord(run *dag.DagRun) (RunRecord, error) {
	graph, err := json.Marshal(run.Graph)
	if err != nil {
		return RunRecord{}, fmt.Errorf("encode graph of run %s: %w", run.ID, err)
	}
	rec := RunRecord{
		ID:          run.ID,
		Graph:       string(graph),
		Status:      string(run.Status),
		Reason:      run.Reason,
		CreatedAt:   run.CreatedAt,
		UpdatedAt:   run.UpdatedAt,
		CompletedAt: run.CompletedAt,
	}
	if run.Graph != nil {
		rec.GraphName = run.Graph.Name
	}
	return rec, nil
}

func toTaskRecord(runID string, st dag.TaskState) (TaskRecord, error) {
	tr := TaskRecord{
		RunID:       runID,
		TaskID:      st.TaskID,
		Status:      string(st.Status),
		Result:      string(st.Result),
		Attempts:    st.Attempts,
		CreatedAt:   st.CreatedAt,
		StartedAt:   st.StartedAt,
		CompletedAt: st.CompletedAt,
		UpdatedAt:   st.UpdatedAt,
	}
	if st.Failure != nil {
		f, err := json.Marshal(st.Failure)
		if err != nil {
			return TaskRecord{}, fmt.Errorf("encode failure of task %s: %w", st.TaskID, err)
		}
		tr.Failure = string(f)
	}
	return tr, nil
}

func fromRecords(rec RunRecord, rows []TaskRecord) (*dag.DagRun, error) {
	run := &dag.DagRun{
		ID:          rec.ID,
		Status:      dag.RunStatus(rec.Status),
		Reason:      rec.Reason,
		Tasks:       make(map[string]*dag.TaskState, len(rows)),
		CreatedAt:   rec.CreatedAt.UTC(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
		CompletedAt: utcPtr(rec.CompletedAt),
	}
	if rec.Graph != "" && rec.Graph != "null" {
		run.Graph = &dag.Graph{}
		if err := json.Unmarshal([]byte(rec.Graph), run.Graph); err != nil {
			return nil, fmt.Errorf("decode graph of run %s: %w", rec.ID, err)
		}
	}
	for _, row := range rows {
		st := &dag.TaskState{
			TaskID:      row.TaskID,
			Status:      dag.TaskStatus(row.Status),
			Attempts:    row.Attempts,
			CreatedAt:   row.CreatedAt.UTC(),
			StartedAt:   utcPtr(row.StartedAt),
			CompletedAt: utcPtr(row.CompletedAt),
			UpdatedAt:   row.UpdatedAt.UTC(),
		}
		if row.Result != "" {
			st.Result = json.RawMessage(row.Result)
		}
		if row.Failure != "" {
			st.Failure = &dag.Failure{}
			if err := json.Unmarshal([]byte(row.Failure), st.Failure); err != nil {
				return nil, fmt.Errorf("decode failure of task %s: %w", row.TaskID, err)
			}
		}
		run.Tasks[row.TaskID] = st
	}
	return run, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
