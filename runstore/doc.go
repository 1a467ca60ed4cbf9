// Package runstore provides dag.RunStore implementations.
//
//   - MemoryStore keeps runs in process memory. Runs do not survive a restart.
//   - SQLStore persists runs through GORM into the dag_runs and
//     dag_task_states tables.
//   - RedisStore keeps each run in a Redis hash and indexes active runs in a set.
//
// Every store returns an errors.RunNotFound AppError for unknown run ids and
// hands out deep copies, so callers never share state with the store.
package runstore
