package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/prover/local"
)

func newManager() *Manager {
	return NewManager(event.NewManager(), func() (prover.Session, error) {
		return local.New(local.DefaultOptions()), nil
	})
}

type recorder struct {
	events       []prover.CommandsChanged
	connected    []string
	disconnected []string
}

func (r *recorder) subscribe(t *testing.T, mgr *Manager) *Support {
	t.Helper()
	s, err := Subscribe(mgr, []event.Type{event.TypeCommandsChanged},
		func(sess prover.Session) event.Handler {
			return func(e event.Event) { r.events = append(r.events, e.Data.(prover.CommandsChanged)) }
		},
		func(sess prover.Session) { r.connected = append(r.connected, sess.ID()) },
		func(sess prover.Session) { r.disconnected = append(r.disconnected, sess.ID()) },
	)
	require.NoError(t, err)
	return s
}

func touch(t *testing.T, sess prover.Session) {
	t.Helper()
	ref := prover.DocumentRef{Name: "A"}
	require.NoError(t, sess.InitDocument(context.Background(), ref, prover.HeaderResult{}, nil, "lemma x\n"))
}

func TestSupportFollowsSessionRestarts(t *testing.T) {
	mgr := newManager()
	rec := &recorder{}
	sup := rec.subscribe(t, mgr)
	assert.Nil(t, sup.Attached())

	first, err := mgr.Start()
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID()}, rec.connected)
	touch(t, first)
	assert.Len(t, rec.events, 1)

	second, err := mgr.Restart()
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID()}, rec.disconnected)
	assert.Equal(t, []string{first.ID(), second.ID()}, rec.connected)
	assert.Same(t, second, sup.Attached())

	touch(t, second)
	assert.Len(t, rec.events, 2)

	sup.UnsubscribeAll()
	sup.UnsubscribeAll()
	assert.Equal(t, []string{first.ID(), second.ID()}, rec.disconnected)

	_, err = mgr.Restart()
	require.NoError(t, err)
	assert.Len(t, rec.connected, 2, "no attach after UnsubscribeAll")
}

func TestSubscribeAttachesToRunningSession(t *testing.T) {
	mgr := newManager()
	sess, err := mgr.Start()
	require.NoError(t, err)

	rec := &recorder{}
	sup := rec.subscribe(t, mgr)
	assert.Equal(t, []string{sess.ID()}, rec.connected)

	err = sup.attach(sess)
	assert.ErrorIs(t, err, ErrAlreadyAttached)
	assert.Len(t, rec.connected, 1)
}

func TestManagerStartStop(t *testing.T) {
	mgr := newManager()
	assert.ErrorIs(t, mgr.Stop(), ErrNoSession)

	_, err := mgr.Start()
	require.NoError(t, err)
	_, err = mgr.Start()
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	sess := mgr.Current()
	require.NoError(t, mgr.Stop())
	assert.Nil(t, mgr.Current())

	err = sess.InitDocument(context.Background(), prover.DocumentRef{Name: "A"}, prover.HeaderResult{}, nil, "")
	assert.ErrorIs(t, err, prover.ErrSessionClosed, "stopped sessions are closed")
}

func TestSubscribeRequiresTypes(t *testing.T) {
	_, err := Subscribe(newManager(), nil, nil, nil, nil)
	assert.Error(t, err)
}
