package config

import "testing"

func TestDefaultConfiguration(t *testing.T) {
	cfg := Default()
	if cfg.Status != StatusOnline {
		t.Errorf("expected default status 'online', got %q", cfg.Status)
	}
}

func TestConfigurationValidate(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		wantErr bool
	}{
		{"empty status", "", false},
		{"online", StatusOnline, false},
		{"idle", StatusIdle, false},
		{"dnd", StatusDND, false},
		{"invalid", "invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Configuration{Status: tt.status}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
