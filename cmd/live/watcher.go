package live

import (
	"github.com/martinsuchenak/hometier/internal/log"
	"github.com/martinsuchenak/hometier/internal/ui"
)

// watcher logs every notification as it is posted and indicator changes on poll
type watcher struct {
	page      *ui.Page
	indicator string
	logf      func(ui.Notification)
}

func newWatcher(page *ui.Page) *watcher {
	w := &watcher{page: page, logf: logNotification}
	page.SetNotificationSink(func(n ui.Notification) { w.logf(n) })
	return w
}

func (w *watcher) poll() {
	if text := w.page.Indicator().Text(); text != w.indicator {
		w.indicator = text
		log.Info("Connection", "status", text)
	}
}

func logNotification(n ui.Notification) {
	switch n.Level {
	case ui.LevelDanger:
		log.Error(n.Message)
	case ui.LevelWarning:
		log.Warn(n.Message)
	default:
		log.Info(n.Message, "level", string(n.Level))
	}
}
