// Package validation checks graph documents, configuration and API input.
//
// Struct tag validation wraps go-playground/validator and reports failures
// as a Validation AppError whose details list every offending field by its
// json path (for example "tasks[2].executor"). Two domain tags are
// registered on top of the built-in ones:
//
//	duration  the string parses with time.ParseDuration and is not negative
//	taskid    letters, digits, '_', '-', '.' and ':' only
//
// Programmatic validation collects field errors fluently:
//
//	err := validation.New().
//		Identifier("run_id", runID).
//		OneOf("store.driver", driver, []string{"memory", "database"}).
//		Err()
package validation
