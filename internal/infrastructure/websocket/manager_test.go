package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"market-client/internal/domain"
	"market-client/pkg/logger"
)

type stateRecorder struct {
	mutex  sync.Mutex
	states []domain.ConnState
}

func (r *stateRecorder) record(state domain.ConnState) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.states = append(r.states, state)
}

func (r *stateRecorder) all() []domain.ConnState {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]domain.ConnState, len(r.states))
	copy(out, r.states)
	return out
}

func newTestManager(t *testing.T) (*Manager, *fakeDialer, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	dialer := &fakeDialer{}
	manager := NewManager(dialer, "ws://test", 3*time.Second, clock, logger.NewNop())
	return manager, dialer, clock
}

func TestConnectIsIdempotent(t *testing.T) {
	manager, dialer, _ := newTestManager(t)
	defer manager.Close()

	require.NoError(t, manager.Connect(context.Background()))
	require.NoError(t, manager.Connect(context.Background()))

	require.Equal(t, domain.Open, manager.State())
	require.Equal(t, 1, dialer.dialCount())
}

func TestSendRequiresOpenConnection(t *testing.T) {
	manager, _, _ := newTestManager(t)

	err := manager.Send("GET_ITEMS")
	require.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestSendWritesToTransport(t *testing.T) {
	manager, dialer, _ := newTestManager(t)
	defer manager.Close()

	require.NoError(t, manager.Connect(context.Background()))
	require.NoError(t, manager.Send("GET_ITEMS"))

	require.Equal(t, []string{"GET_ITEMS"}, dialer.transportAt(0).sentFrames())
}

func TestFramesReachTheSink(t *testing.T) {
	manager, dialer, _ := newTestManager(t)
	defer manager.Close()

	var mutex sync.Mutex
	var frames []string
	manager.SetFrameSink(func(frame string) {
		mutex.Lock()
		defer mutex.Unlock()
		frames = append(frames, frame)
	})

	require.NoError(t, manager.Connect(context.Background()))
	dialer.transportAt(0).push("ERROR|boom")

	require.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return len(frames) == 1 && frames[0] == "ERROR|boom"
	}, time.Second, 5*time.Millisecond)
}

func TestUncleanClosureRetriesExactlyOnceAfterDelay(t *testing.T) {
	manager, dialer, clock := newTestManager(t)
	defer manager.Close()

	recorder := &stateRecorder{}
	manager.SetStateSink(recorder.record)

	require.NoError(t, manager.Connect(context.Background()))
	dialer.transportAt(0).dropUncleanly()

	require.Eventually(t, func() bool {
		return manager.State() == domain.Retrying
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, dialer.dialCount())

	clock.Advance(3 * time.Second)

	require.Eventually(t, func() bool {
		return len(recorder.all()) == 5
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 2, dialer.dialCount())
	require.Equal(t, domain.Open, manager.State())

	require.Equal(t,
		[]domain.ConnState{domain.Connecting, domain.Open, domain.Retrying, domain.Connecting, domain.Open},
		recorder.all())
}

// slowTransport stalls in WriteFrame and records whether two writes ever
// overlapped, which the real socket forbids.
type slowTransport struct {
	closeOnce sync.Once
	done      chan struct{}
	active    int32
	overlaps  int32
	writes    int32
}

func newSlowTransport() *slowTransport {
	return &slowTransport{done: make(chan struct{})}
}

func (t *slowTransport) ReadFrame() (string, error) {
	<-t.done
	return "", errors.New("transport closed")
}

func (t *slowTransport) WriteFrame(frame string) error {
	if atomic.AddInt32(&t.active, 1) > 1 {
		atomic.StoreInt32(&t.overlaps, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&t.active, -1)
	atomic.AddInt32(&t.writes, 1)
	return nil
}

func (t *slowTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

type singleDialer struct {
	transport domain.Transport
}

func (d singleDialer) Dial(ctx context.Context, url string) (domain.Transport, error) {
	return d.transport, nil
}

func TestConcurrentSendsAreSerialized(t *testing.T) {
	transport := newSlowTransport()
	manager := NewManager(singleDialer{transport: transport}, "ws://test",
		3*time.Second, clockwork.NewFakeClock(), logger.NewNop())
	defer manager.Close()

	require.NoError(t, manager.Connect(context.Background()))

	var wg sync.WaitGroup
	var sendErrs int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if err := manager.Send("GET_ITEMS"); err != nil {
					atomic.AddInt32(&sendErrs, 1)
				}
			}
		}()
	}
	wg.Wait()

	require.Zero(t, atomic.LoadInt32(&sendErrs))
	require.EqualValues(t, 40, atomic.LoadInt32(&transport.writes))
	require.Zero(t, atomic.LoadInt32(&transport.overlaps))
}

func TestDialFailureArmsRetry(t *testing.T) {
	manager, dialer, clock := newTestManager(t)
	defer manager.Close()

	dialer.failNext = true
	require.Error(t, manager.Connect(context.Background()))
	require.Equal(t, domain.Retrying, manager.State())

	clock.Advance(3 * time.Second)

	require.Eventually(t, func() bool {
		return manager.State() == domain.Open
	}, time.Second, 5*time.Millisecond)
}

func TestCloseCancelsPendingRetry(t *testing.T) {
	manager, dialer, clock := newTestManager(t)

	require.NoError(t, manager.Connect(context.Background()))
	dialer.transportAt(0).dropUncleanly()

	require.Eventually(t, func() bool {
		return manager.State() == domain.Retrying
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, manager.Close())
	require.Equal(t, domain.Disconnected, manager.State())

	clock.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)

	require.Equal(t, 1, dialer.dialCount())
	require.Equal(t, domain.Disconnected, manager.State())
}

func TestCloseDetachesSinkBeforeTeardown(t *testing.T) {
	manager, dialer, _ := newTestManager(t)

	var mutex sync.Mutex
	var frames []string
	manager.SetFrameSink(func(frame string) {
		mutex.Lock()
		defer mutex.Unlock()
		frames = append(frames, frame)
	})

	require.NoError(t, manager.Connect(context.Background()))
	transport := dialer.transportAt(0)
	transport.push("ITEM_UPDATE|1,Vase,auction,10,0,1,,0")

	require.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return len(frames) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, manager.Close())
	time.Sleep(20 * time.Millisecond)

	mutex.Lock()
	defer mutex.Unlock()
	require.Len(t, frames, 1)
}
