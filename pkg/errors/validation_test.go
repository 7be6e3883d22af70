package errors

import (
	"strings"
	"testing"
)

func TestValidateTypeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "Folder", false},
		{"valid with dash", "flow-input", false},
		{"valid with underscore", "Test_Eleven", false},
		{"valid with dot", "web.Component", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 200), true},
		{"path traversal", "a..b", true},
		{"slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"leading digit", "1Folder", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTypeName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTypeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidType) {
				t.Errorf("ValidateTypeName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidType)
			}
		})
	}
}

func TestValidateViewName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"public", false},
		{"ui", false},
		{"_graph", false},
		{"__graph", true},
		{"", true},
		{"a b", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateViewName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateViewName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateKeyName(t *testing.T) {
	if err := ValidateKeyName("parentId"); err != nil {
		t.Errorf("ValidateKeyName(parentId) = %v", err)
	}
	if err := ValidateKeyName("../etc"); !Is(err, ErrCodeInvalidKey) {
		t.Errorf("ValidateKeyName(../etc) = %v, want INVALID_KEY", err)
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "graph.json", false},
		{"absolute", "/tmp/graph.json", false},
		{"empty", "", true},
		{"null byte", "a\x00b", true},
		{"too long", strings.Repeat("a", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFormat(t *testing.T) {
	supported := []string{"json", "bson"}
	if err := ValidateFormat("json", supported); err != nil {
		t.Errorf("ValidateFormat(json) = %v", err)
	}
	err := ValidateFormat("xml", supported)
	if !Is(err, ErrCodeInvalidFormat) {
		t.Fatalf("ValidateFormat(xml) = %v, want INVALID_FORMAT", err)
	}
	if !strings.Contains(err.Error(), "json, bson") {
		t.Errorf("error should list supported formats: %v", err)
	}
}
