package session

import (
	"errors"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"ana", "ana", false},
		{"  bo  ", "bo", false},
		{"twelve_chars", "twelve_chars", false},
		{"ñandú", "ñandú", false},
		{"thirteen_char", "", true},
		{"", "", true},
		{"   ", "", true},
		{`say "hi"`, "", true},
		{`back\slash`, "", true},
		{"tab\there", "", true},
		{"o'brien", "o'brien", false},
	}
	for _, tt := range tests {
		got, err := ValidateName(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidName) {
				t.Errorf("ValidateName(%q) error = %v, want ErrInvalidName", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ValidateName(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidateName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
