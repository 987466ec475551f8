package fanin

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settle(t *testing.T, f *Composite) {
	t.Helper()
	done := make(chan struct{})
	f.OnSettle(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("composite did not settle")
	}
}

func TestComposite_SettlesAfterAllChildren(t *testing.T) {
	f := New(context.Background())

	release := make(chan struct{})
	f.Add("fast", func(ctx context.Context) ([]byte, error) {
		return []byte("a"), nil
	})
	f.Add("slow", func(ctx context.Context) ([]byte, error) {
		<-release
		return []byte("b"), nil
	})

	fired := make(chan struct{})
	f.OnSettle(func() { close(fired) })

	select {
	case <-fired:
		t.Fatal("settled before slow child")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("composite did not settle")
	}

	child, ok := f.Child("fast")
	require.True(t, ok)
	value, err := child.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), value)

	child, ok = f.Child("slow")
	require.True(t, ok)
	value, err = child.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), value)
}

func TestComposite_FiresExactlyOnce(t *testing.T) {
	f := New(context.Background())
	for _, name := range []string{"a", "b", "c"} {
		f.Add(name, func(ctx context.Context) ([]byte, error) {
			return nil, nil
		})
	}

	var fires atomic.Int32
	done := make(chan struct{})
	f.OnSettle(func() {
		fires.Add(1)
		close(done)
	})

	<-done
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fires.Load())
}

func TestComposite_DuplicateAddIsNoOp(t *testing.T) {
	f := New(context.Background())

	var calls atomic.Int32
	added := f.Add("key", func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("first"), nil
	})
	assert.True(t, added)

	added = f.Add("key", func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("second"), nil
	})
	assert.False(t, added, "duplicate name must be an idempotent no-op")
	assert.Equal(t, 1, f.Len())

	settle(t, f)

	assert.Equal(t, int32(1), calls.Load(), "duplicate op must not be issued")
	child, ok := f.Child("key")
	require.True(t, ok)
	value, err := child.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), value)
}

func TestComposite_ChildFailureDoesNotShortCircuit(t *testing.T) {
	f := New(context.Background())

	sentinel := errors.New("read failed")
	f.Add("bad", func(ctx context.Context) ([]byte, error) {
		return nil, sentinel
	})
	f.Add("good", func(ctx context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})

	settle(t, f)

	child, ok := f.Child("bad")
	require.True(t, ok)
	_, err := child.Value()
	assert.ErrorIs(t, err, sentinel)

	child, ok = f.Child("good")
	require.True(t, ok)
	value, err := child.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), value)
}

func TestComposite_EmptySettlesImmediately(t *testing.T) {
	f := New(context.Background())
	settle(t, f)
}

func TestComposite_ContextCancellationSettlesChildren(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := New(ctx)

	f.Add("blocked", func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	cancel()
	settle(t, f)

	child, ok := f.Child("blocked")
	require.True(t, ok)
	_, err := child.Value()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComposite_UnknownChild(t *testing.T) {
	f := New(context.Background())
	_, ok := f.Child("nope")
	assert.False(t, ok)
}

func TestComposite_AddAfterArmPanics(t *testing.T) {
	f := New(context.Background())
	f.OnSettle(func() {})

	assert.Panics(t, func() {
		f.Add("late", func(ctx context.Context) ([]byte, error) { return nil, nil })
	})
}
