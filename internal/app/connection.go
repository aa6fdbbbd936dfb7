package app

import (
	"github.com/bethropolis/proofsync/internal/decoration"
	"github.com/bethropolis/proofsync/internal/document"
	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/view"
)

// connection is the per-session state of the open document.
type connection struct {
	sess        prover.Session
	model       *document.Model
	annotations *view.Annotations
}

func (a *App) current() *connection {
	a.connMu.Lock()
	defer a.connMu.Unlock()
	return a.conn
}

// listenerFor forwards a session's events to the connection built for it.
// It runs on the session's goroutine.
func (a *App) listenerFor(sess prover.Session) event.Handler {
	return func(e event.Event) {
		if c := a.current(); c != nil && c.sess == sess {
			c.annotations.HandleEvent(e)
		}
	}
}

// connected runs on the UI goroutine, from Start or Restart.
func (a *App) connected(sess prover.Session) {
	model := document.New(sess, a.buf, a.ref)
	if err := model.Init(a.ctx); err != nil {
		logger.Errorf("Init %s on %s: %v", a.ref, sess.ID(), err)
		a.statusBar.SetTemporaryError("Init failed: %v", err)
		return
	}
	updater := decoration.NewUpdater(a.decCfg, a.buf, a.decorations, a.markers, a.resource)
	c := &connection{
		sess:        sess,
		model:       model,
		annotations: view.NewAnnotations(model, updater, a.tuiManager, a.installed),
	}
	a.connMu.Lock()
	a.conn = c
	a.connMu.Unlock()

	a.updatePerspective()
	c.annotations.RequestAll()
	a.statusBar.SetSession("checking")
	logger.Infof("Document %s attached to session %s", a.ref, sess.ID())
}

// disconnected runs on the UI goroutine before the session closes, so the
// model's final flush still reaches it.
func (a *App) disconnected(sess prover.Session) {
	a.connMu.Lock()
	c := a.conn
	if c == nil || c.sess != sess {
		a.connMu.Unlock()
		return
	}
	a.conn = nil
	a.connMu.Unlock()

	c.annotations.Close()
	if err := c.model.Dispose(a.ctx); err != nil {
		logger.Warnf("Dispose %s: %v", a.ref, err)
	}
	a.statusBar.SetSession("offline")
}

// installed runs on the UI goroutine after each annotation update.
func (a *App) installed(res decoration.Result) {
	logger.DebugTagf("annotations", "Installed %+v", res)
}

// updatePerspective submits the viewport as the region to check.
func (a *App) updatePerspective() {
	c := a.current()
	if c == nil {
		return
	}
	off, n := a.editor.VisibleRange()
	c.model.SetActivePerspective(off, n)
}
