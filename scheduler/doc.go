// Package scheduler submits graph documents on a cron schedule.
//
// At start every document in the schedules directory that carries a
// schedule expression is compiled and registered. Standard five-field
// expressions and descriptors such as "@hourly" or "@every 15m" are
// accepted. A schedule whose previous run is still executing is skipped.
package scheduler
