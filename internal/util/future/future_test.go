package future

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAwait(t *testing.T) {
	f := New(func() (int, error) { return 42, nil })
	v, err := f.Await()
	if v != 42 || err != nil {
		t.Errorf("Await() = %d, %v", v, err)
	}
	// a completed future answers again
	if v, _ := f.Await(); v != 42 {
		t.Errorf("second Await() = %d", v)
	}
	select {
	case <-f.Done():
	default:
		t.Errorf("Done not closed after completion")
	}
}

func TestFromError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := FromError[string](boom).Await(); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestAwaitContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := New(func() (int, error) {
		<-release
		return 1, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := slow.AwaitContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}

	fast := New(func() (int, error) { return 2, nil })
	if v, err := fast.AwaitContext(context.Background()); v != 2 || err != nil {
		t.Errorf("AwaitContext() = %d, %v", v, err)
	}
}

func TestAll(t *testing.T) {
	tests := []struct {
		name    string
		futures []*Future[int]
		want    []int
		wantErr string
	}{
		{"empty", nil, []int{}, ""},
		{
			"in order",
			[]*Future[int]{
				New(func() (int, error) { time.Sleep(5 * time.Millisecond); return 1, nil }),
				New(func() (int, error) { return 2, nil }),
			},
			[]int{1, 2},
			"",
		},
		{
			"first error wins",
			[]*Future[int]{
				New(func() (int, error) { return 1, nil }),
				FromError[int](errors.New("second")),
				FromError[int](errors.New("third")),
			},
			[]int{1, 0, 0},
			"second",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := All(tt.futures...)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %s", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("err = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
