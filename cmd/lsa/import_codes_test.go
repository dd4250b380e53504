package main

import (
	"testing"

	lsaerrors "lsa/internal/errors"
)

func TestSeverityForCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		explicit string
		want     string
		wantErr  bool
	}{
		{"derived from trailing letter", "PPDE1234E", "", "E", false},
		{"derived fatal", "PPCS8005F", "", "F", false},
		{"derived info", "PPWX0001I", "", "I", false},
		{"explicit agrees with letter", "PPCS8005F", "F", "F", false},
		{"explicit fills in for ORA code", "ORA-01017", "E", "E", false},
		{"explicit disagrees with letter", "PPDE1234E", "W", "", true},
		{"nothing to derive", "ORA-01017", "", "", true},
		{"invalid explicit severity", "PPDE1234E", "X", "", true},
		{"empty code with explicit", "", "W", "W", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := severityForCode(tt.code, tt.explicit)
			if (err != nil) != tt.wantErr {
				t.Fatalf("severityForCode(%q, %q) error = %v, wantErr %v",
					tt.code, tt.explicit, err, tt.wantErr)
			}
			if err != nil {
				if !lsaerrors.HasCode(err, lsaerrors.ConfigInvalid) {
					t.Errorf("error code = %v, want ConfigInvalid", lsaerrors.CodeOf(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("severityForCode(%q, %q) = %q, want %q",
					tt.code, tt.explicit, got, tt.want)
			}
		})
	}
}
