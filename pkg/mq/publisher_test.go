package mq

import (
	"context"
	"errors"
	"testing"
)

type fakeConfirmation struct {
	acked bool
	err   error
}

func (f fakeConfirmation) WaitContext(context.Context) (bool, error) { return f.acked, f.err }

func TestAwaitConfirm(t *testing.T) {
	closed := errors.New("channel closed")
	tests := []struct {
		name    string
		conf    fakeConfirmation
		wantErr error
	}{
		{"acked", fakeConfirmation{acked: true}, nil},
		{"nacked", fakeConfirmation{acked: false}, ErrNacked},
		{"wait failed", fakeConfirmation{err: closed}, closed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := awaitConfirm(context.Background(), tt.conf)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("awaitConfirm() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("awaitConfirm() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
