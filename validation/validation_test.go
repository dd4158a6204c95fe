package validation

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/kbukum/prefetchkit/errors"
)

type poolSettings struct {
	Workers int    `mapstructure:"workers" validate:"min=1"`
	Mode    string `mapstructure:"mode" validate:"oneof=fast slow"`
	Inner   inner  `mapstructure:"inner"`
}

type inner struct {
	MaxRetries int `validate:"gte=0"`
}

func TestValidateStruct_Valid(t *testing.T) {
	if err := ValidateStruct(poolSettings{Workers: 2, Mode: "fast"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStruct_FieldNames(t *testing.T) {
	err := ValidateStruct(poolSettings{Workers: 0, Mode: "medium", Inner: inner{MaxRetries: -1}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if errors.CodeOf(err) != errors.ErrCodeInvalidConfig {
		t.Fatalf("expected INVALID_CONFIG, got %s", errors.CodeOf(err))
	}

	msg := err.Error()
	for _, want := range []string{"workers: must be at least 1", "mode: must be one of: fast slow", "inner.max_retries"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestValidator_Check(t *testing.T) {
	v := New()
	v.Check(true, "a", "never").Check(false, "b", "is required")
	if len(v.Errors()) != 1 || v.Errors()[0].Field != "b" {
		t.Fatalf("unexpected errors %v", v.Errors())
	}
	if v.Error() == nil {
		t.Fatal("expected error")
	}
}

func TestValidator_NoErrors(t *testing.T) {
	if err := New().Error(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestValidator_Merge(t *testing.T) {
	nested := ValidateStruct(poolSettings{Workers: 0, Mode: "fast"})

	v := New()
	v.Merge("loader", nested)
	v.Merge("status", stderrors.New("address in use"))
	v.Merge("ignored", nil)

	got := v.Errors()
	if len(got) != 2 {
		t.Fatalf("expected 2 errors, got %v", got)
	}
	if got[0].Field != "loader.workers" {
		t.Errorf("expected loader.workers, got %s", got[0].Field)
	}
	if got[1].Field != "status" {
		t.Errorf("expected status, got %s", got[1].Field)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Workers":        "workers",
		"PrefetchFactor": "prefetch_factor",
		"X":              "x",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
