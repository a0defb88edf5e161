// Package validator provides small, composable validation rules.
//
// A Rule couples a lazily evaluated Check with the ValidationError reported
// when the check fails. Apply evaluates a set of rules and aggregates the
// failures into ValidationErrors, which implements error and matches
// ErrValidationFailed through errors.Is.
//
// # Usage
//
//	err := validator.Apply(
//		validator.RangeNum("port", opts.Port, 1, 65535),
//		validator.Required("key_store_path", opts.KeyStorePath),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//		for _, f := range verrs.Fields() {
//			// inspect field-level messages
//		}
//	}
//
// Rules that depend on another value can be grouped with When:
//
//	rules := []validator.Rule{validator.RangeNum("port", port, 1, 65535)}
//	rules = append(rules, validator.When(useTLS,
//		validator.Required("key_store_path", path),
//	)...)
//	err := validator.Apply(rules...)
//
// The package is stateless and safe for concurrent use.
package validator
