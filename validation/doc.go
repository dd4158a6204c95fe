// Package validation validates configuration structs.
//
// Struct tag validation uses go-playground/validator; field names in the
// resulting errors follow the mapstructure tag so they match the keys a user
// writes in YAML or environment variables.
//
//	type PoolConfig struct {
//	    Workers int `mapstructure:"workers" validate:"min=1"`
//	}
//	err := validation.ValidateStruct(cfg)
//
// Programmatic checks collect errors the same way:
//
//	v := validation.New()
//	v.Check(cfg.Name != "", "name", "is required")
//	err := v.Error()
package validation
