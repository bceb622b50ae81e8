package worker

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "default config is valid",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "zero concurrency",
			config: Config{
				Concurrency:       0,
				PollInterval:      5 * time.Second,
				JobTimeout:        5 * time.Minute,
				ShutdownTimeout:   30 * time.Second,
				StaleJobThreshold: 10 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "concurrency too high",
			config: Config{
				Concurrency:       200,
				PollInterval:      5 * time.Second,
				JobTimeout:        5 * time.Minute,
				ShutdownTimeout:   30 * time.Second,
				StaleJobThreshold: 10 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "poll interval too short",
			config: Config{
				Concurrency:       2,
				PollInterval:      100 * time.Millisecond,
				JobTimeout:        5 * time.Minute,
				ShutdownTimeout:   30 * time.Second,
				StaleJobThreshold: 10 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "job timeout too short",
			config: Config{
				Concurrency:       2,
				PollInterval:      5 * time.Second,
				JobTimeout:        500 * time.Millisecond,
				ShutdownTimeout:   30 * time.Second,
				StaleJobThreshold: 10 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "shutdown timeout too short",
			config: Config{
				Concurrency:       2,
				PollInterval:      5 * time.Second,
				JobTimeout:        5 * time.Minute,
				ShutdownTimeout:   0,
				StaleJobThreshold: 10 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "stale job threshold too short",
			config: Config{
				Concurrency:       2,
				PollInterval:      5 * time.Second,
				JobTimeout:        5 * time.Minute,
				ShutdownTimeout:   30 * time.Second,
				StaleJobThreshold: 30 * time.Second,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "regular error",
			err:  errors.New("something failed"),
			want: false,
		},
		{
			name: "permanent error",
			err:  NewPermanentError(errors.New("bad payload")),
			want: true,
		},
		{
			name: "wrapped permanent error",
			err:  fmt.Errorf("handler failed: %w", NewPermanentError(errors.New("bad payload"))),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPermanentErrorUnwrap(t *testing.T) {
	inner := errors.New("image record missing")
	err := NewPermanentError(inner)

	if !errors.Is(err, inner) {
		t.Errorf("errors.Is should see through PermanentError")
	}
	if err.Error() != inner.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), inner.Error())
	}
}
