package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		cleanup func()
		wantErr bool
	}{
		{
			name: "load with defaults",
			setup: func() {
				os.Unsetenv("DATABASE_URL")
				os.Unsetenv("REDIS_URL")
			},
			cleanup: func() {},
			wantErr: false,
		},
		{
			name: "load with environment variables",
			setup: func() {
				os.Setenv("CLINIC_SERVER_PORT", "9090")
				os.Setenv("CLINIC_DATABASE_HOST", "testhost")
				os.Setenv("CLINIC_REDIS_HOST", "testredis")
			},
			cleanup: func() {
				os.Unsetenv("CLINIC_SERVER_PORT")
				os.Unsetenv("CLINIC_DATABASE_HOST")
				os.Unsetenv("CLINIC_REDIS_HOST")
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.cleanup()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if cfg == nil {
					t.Error("Load() returned nil config")
					return
				}

				if cfg.Server.Port == "" {
					t.Error("Server port not set")
				}
				if cfg.Database.Port == 0 {
					t.Error("Database port not set")
				}
				if cfg.Analytics.EfficiencyVisitTarget <= 0 {
					t.Error("Efficiency visit target not set")
				}
				if cfg.Analytics.CacheTTLMinutes <= 0 {
					t.Error("Cache TTL not set")
				}
			}
		})
	}
}
