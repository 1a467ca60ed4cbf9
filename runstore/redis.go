package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/dagflow/dag"
	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/redis"
)

const (
	runField    = "run"
	taskPrefix  = "task:"
	activeIndex = "runs:active"
)

// RedisStore is a dag.RunStore on Redis. Each run is a hash at
// "<prefix>:run:<id>" with the run header in field "run" and one field per
// task, "task:<id>". Non-terminal run ids are kept in "<prefix>:runs:active".
type RedisStore struct {
	client *redis.Client
}

var _ dag.RunStore = (*RedisStore)(nil)

// NewRedisStore creates a store on client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) runKey(id string) string { return s.client.Key("run", id) }

// SaveRun replaces the run hash and updates the active index atomically.
func (s *RedisStore) SaveRun(ctx context.Context, run *dag.DagRun) error {
	fields, err := encodeRun(run)
	if err != nil {
		return apperrors.Internal(err)
	}
	key := s.runKey(run.ID)
	active := s.client.Key(activeIndex)

	_, err = s.client.Unwrap().TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, fields)
		if run.Status.IsTerminal() {
			p.SRem(ctx, active, run.ID)
		} else {
			p.SAdd(ctx, active, run.ID)
		}
		return nil
	})
	if err != nil {
		return apperrors.ExternalServiceError("redis", err)
	}
	return nil
}

// SaveTaskStatus writes one task field of an existing run.
func (s *RedisStore) SaveTaskStatus(ctx context.Context, runID, taskID string, state dag.TaskState) error {
	key := s.runKey(runID)
	exists, err := s.client.Unwrap().HExists(ctx, key, runField).Result()
	if err != nil {
		return apperrors.ExternalServiceError("redis", err)
	}
	if !exists {
		return apperrors.RunNotFound(runID)
	}

	state.TaskID = taskID
	data, err := json.Marshal(state)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("encode task %s: %w", taskID, err))
	}
	if err := s.client.Unwrap().HSet(ctx, key, taskPrefix+taskID, data).Err(); err != nil {
		return apperrors.ExternalServiceError("redis", err)
	}
	return nil
}

// LoadRun reads a run hash.
func (s *RedisStore) LoadRun(ctx context.Context, runID string) (*dag.DagRun, error) {
	fields, err := s.client.Unwrap().HGetAll(ctx, s.runKey(runID)).Result()
	if err != nil {
		return nil, apperrors.ExternalServiceError("redis", err)
	}
	if _, ok := fields[runField]; !ok {
		return nil, apperrors.RunNotFound(runID)
	}
	run, err := decodeRun(fields)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return run, nil
}

// LoadNonTerminalRuns reads every run in the active index, oldest first.
// Stale index entries are skipped.
func (s *RedisStore) LoadNonTerminalRuns(ctx context.Context) ([]*dag.DagRun, error) {
	ids, err := s.client.Unwrap().SMembers(ctx, s.client.Key(activeIndex)).Result()
	if err != nil {
		return nil, apperrors.ExternalServiceError("redis", err)
	}
	var out []*dag.DagRun
	for _, id := range ids {
		run, err := s.LoadRun(ctx, id)
		if apperrors.HasCode(err, apperrors.ErrCodeRunNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !run.Status.IsTerminal() {
			out = append(out, run)
		}
	}
	sortRuns(out)
	return out, nil
}

func encodeRun(run *dag.DagRun) (map[string]interface{}, error) {
	header := *run
	header.Tasks = nil
	data, err := json.Marshal(&header)
	if err != nil {
		return nil, fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	fields := make(map[string]interface{}, len(run.Tasks)+1)
	fields[runField] = data
	for id, st := range run.Tasks {
		b, err := json.Marshal(st)
		if err != nil {
			return nil, fmt.Errorf("encode task %s: %w", id, err)
		}
		fields[taskPrefix+id] = b
	}
	return fields, nil
}

func decodeRun(fields map[string]string) (*dag.DagRun, error) {
	var run dag.DagRun
	if err := json.Unmarshal([]byte(fields[runField]), &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	run.Tasks = make(map[string]*dag.TaskState, len(fields)-1)
	for name, value := range fields {
		id, ok := strings.CutPrefix(name, taskPrefix)
		if !ok {
			continue
		}
		var st dag.TaskState
		if err := json.Unmarshal([]byte(value), &st); err != nil {
			return nil, fmt.Errorf("decode task %s of run %s: %w", id, run.ID, err)
		}
		run.Tasks[id] = &st
	}
	return &run, nil
}
