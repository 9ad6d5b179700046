// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

type sampleRequest struct {
	ActorID string  `validate:"required,actorid"`
	Title   string  `validate:"required,max=20"`
	Price   float64 `validate:"gte=0"`
	Pattern string  `validate:"omitempty,regexp"`
	Policy  string  `validate:"required,oneof=skip deny"`
}

func validRequest() sampleRequest {
	return sampleRequest{
		ActorID: "seller-42",
		Title:   "Bike",
		Price:   10,
		Pattern: `bit\.ly`,
		Policy:  "skip",
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	if err := ValidateStruct(validRequest()); err != nil {
		t.Fatalf("ValidateStruct() = %v, want nil", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*sampleRequest)
		field   string
		tag     string
		message string
	}{
		{
			name:    "missing actor",
			mutate:  func(r *sampleRequest) { r.ActorID = "" },
			field:   "ActorID",
			tag:     "required",
			message: "ActorID is required",
		},
		{
			name:    "actor with spaces",
			mutate:  func(r *sampleRequest) { r.ActorID = "seller 42" },
			field:   "ActorID",
			tag:     "actorid",
			message: "ActorID must be 1-128 characters",
		},
		{
			name:    "title too long",
			mutate:  func(r *sampleRequest) { r.Title = strings.Repeat("x", 21) },
			field:   "Title",
			tag:     "max",
			message: "Title must be at most 20 characters",
		},
		{
			name:    "negative price",
			mutate:  func(r *sampleRequest) { r.Price = -1 },
			field:   "Price",
			tag:     "gte",
			message: "Price must be greater than or equal to 0",
		},
		{
			name:    "broken regexp",
			mutate:  func(r *sampleRequest) { r.Pattern = "([a-z" },
			field:   "Pattern",
			tag:     "regexp",
			message: "Pattern must be a valid regular expression",
		},
		{
			name:    "unknown policy",
			mutate:  func(r *sampleRequest) { r.Policy = "maybe" },
			field:   "Policy",
			tag:     "oneof",
			message: "Policy must be one of: skip deny",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := ValidateStruct(req)
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), err)
			}
			if got := errs[0].Field(); got != tt.field {
				t.Errorf("Field() = %q, want %q", got, tt.field)
			}
			if got := errs[0].Tag(); got != tt.tag {
				t.Errorf("Tag() = %q, want %q", got, tt.tag)
			}
			if !strings.HasPrefix(errs[0].Error(), tt.message) {
				t.Errorf("Error() = %q, want prefix %q", errs[0].Error(), tt.message)
			}
		})
	}
}

type nestedRules struct {
	Volume struct {
		DailyLimit int `validate:"gte=1"`
	}
}

func TestValidateStruct_NestedFieldPath(t *testing.T) {
	err := ValidateStruct(nestedRules{})
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}
	if got := err.Errors()[0].Field(); got != "Volume.DailyLimit" {
		t.Errorf("Field() = %q, want %q", got, "Volume.DailyLimit")
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		req := validRequest()
		req.ActorID = ""
		apiErr := ValidateStruct(req).ToAPIError()

		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
		}
		if apiErr.Details["field"] != "ActorID" {
			t.Errorf("Details[field] = %v, want ActorID", apiErr.Details["field"])
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		apiErr := ValidateStruct(sampleRequest{}).ToAPIError()

		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok {
			t.Fatalf("Details[fields] has type %T", apiErr.Details["fields"])
		}
		if len(fields) != 3 {
			t.Errorf("got %d field errors, want 3", len(fields))
		}
	})

	t.Run("empty", func(t *testing.T) {
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Message != "Validation failed" {
			t.Errorf("Message = %q, want %q", apiErr.Message, "Validation failed")
		}
	})
}
