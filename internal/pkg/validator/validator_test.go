package validator

import (
	"strings"
	"testing"
)

func TestValidateStructFlattensFieldErrors(t *testing.T) {
	type req struct {
		Name  string `validate:"required"`
		Count int    `validate:"min=1"`
	}

	err := ValidateStruct(req{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "name is required") {
		t.Errorf("missing required message: %q", msg)
	}
	if !strings.Contains(msg, "count must be at least 1") {
		t.Errorf("missing min message: %q", msg)
	}
}

func TestValidateStructKeepsPercentSignsVerbatim(t *testing.T) {
	type req struct {
		Discount string `validate:"required,oneof=50% 100%"`
	}

	err := ValidateStruct(req{Discount: "25%"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "50% 100%") {
		t.Errorf("percent signs must survive message assembly: %q", err.Error())
	}
}

func TestValidateStructPassesThroughNonFieldErrors(t *testing.T) {
	if err := ValidateStruct(42); err == nil {
		t.Error("expected error for non-struct input")
	}
}

func TestValidateStructAcceptsValidInput(t *testing.T) {
	type req struct {
		Name string `validate:"required"`
	}
	if err := ValidateStruct(req{Name: "ok"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
