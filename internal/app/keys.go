package app

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"

	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/logger"
)

const submitTimeout = 10 * time.Second

func (a *App) handleKey(ev *tcell.EventKey) {
	edited := false
	switch ev.Key() {
	case tcell.KeyCtrlQ:
		a.quit = true
		return
	case tcell.KeyCtrlS:
		a.submitAll()
	case tcell.KeyCtrlY:
		a.copyMessage()
	case tcell.KeyCtrlW:
		a.save()
	case tcell.KeyCtrlR:
		a.restart()
	case tcell.KeyUp:
		a.editor.Move(-1, 0)
	case tcell.KeyDown:
		a.editor.Move(1, 0)
	case tcell.KeyLeft:
		a.editor.Left()
	case tcell.KeyRight:
		a.editor.Right()
	case tcell.KeyPgUp:
		a.editor.PageMove(-1)
	case tcell.KeyPgDn:
		a.editor.PageMove(1)
	case tcell.KeyHome:
		a.editor.MoveToLineStart()
	case tcell.KeyEnd:
		a.editor.MoveToLineEnd()
	case tcell.KeyEnter:
		a.editor.InsertText("\n")
		edited = true
	case tcell.KeyTab:
		a.editor.InsertText("\t")
		edited = true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		a.editor.Backspace()
		edited = true
	case tcell.KeyDelete:
		a.editor.DeleteForward()
		edited = true
	case tcell.KeyRune:
		a.editor.InsertText(string(ev.Rune()))
		edited = true
	default:
		return
	}
	if edited {
		// Line count may have changed the gutter width.
		a.resize()
		return
	}
	a.updatePerspective()
}

// submitAll asks the prover to check the whole document. The submission
// blocks on the session, so it runs off the UI goroutine.
func (a *App) submitAll() {
	c := a.current()
	if c == nil {
		a.statusBar.SetTemporaryError("No prover session")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, submitTimeout)
		defer cancel()
		err := c.model.SubmitFullPerspective(ctx)
		if a.ctx.Err() != nil {
			return
		}
		a.tuiManager.Post(func() {
			if err != nil {
				a.statusBar.SetTemporaryError("Check failed: %v", err)
				return
			}
			a.statusBar.SetTemporaryMessage("Checking whole document")
		}, a.ctx.Done())
	}()
}

func (a *App) copyMessage() {
	msg, ok := a.messageAt(a.editor.CursorOffset())
	if !ok {
		a.statusBar.SetTemporaryMessage("No message at cursor")
		return
	}
	a.register = msg
	if a.cfg.Editor.SystemClipboard {
		if err := clipboard.WriteAll(msg); err != nil {
			logger.Warnf("System clipboard: %v", err)
			a.statusBar.SetTemporaryMessage("Copied to internal register")
			return
		}
	}
	a.statusBar.SetTemporaryMessage("Copied: %s", msg)
}

func (a *App) save() {
	if err := a.buf.Save(""); err != nil {
		a.statusBar.SetTemporaryError("Save failed: %v", err)
		return
	}
	a.sessions.Events().Dispatch(event.TypeBufferSaved, event.BufferSavedData{FilePath: a.buf.FilePath()})
	a.statusBar.SetTemporaryMessage("Saved %s", a.buf.FilePath())
}

func (a *App) restart() {
	if _, err := a.sessions.Restart(); err != nil {
		a.statusBar.SetTemporaryError("Restart failed: %v", err)
		return
	}
	a.statusBar.SetTemporaryMessage("Prover restarted")
}
