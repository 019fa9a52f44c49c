package main

import (
	"strings"
	"testing"
)

func TestParsePort(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    int
		wantErr string
	}{
		{name: "valid", arg: "9000", want: 9000},
		{name: "low edge", arg: "1", want: 1},
		{name: "high edge", arg: "65535", want: 65535},
		{name: "not a number", arg: "abc", wantErr: "must be a number"},
		{name: "zero", arg: "0", wantErr: "between 1 and 65535"},
		{name: "too large", arg: "70000", wantErr: "between 1 and 65535"},
		{name: "negative", arg: "-1", wantErr: "between 1 and 65535"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePort(tt.arg)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("parsePort should have returned an error")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePort returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parsePort(%q) = %d, want %d", tt.arg, got, tt.want)
			}
		})
	}
}
