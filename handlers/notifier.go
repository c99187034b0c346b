package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/terraflota/fleetops/config"
)

// Notification levels understood by the presentation layer.
const (
	NotifyInfo     = "info"
	NotifyWarning  = "warning"
	NotifyCritical = "critical"
)

// Notifier receives structured events from the decision engines. How they are
// rendered (toasts, dashboards, logs) is entirely the sink's concern; the
// engines only report what happened.
type Notifier interface {
	Notify(level, message string, context map[string]interface{})
}

// LogNotifier is the default sink: it writes events to the structured log,
// where the ops dashboard tails them.
type LogNotifier struct {
	log *logrus.Logger
}

// NewLogNotifier creates a notifier backed by the process logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: config.GetLogger()}
}

func (n *LogNotifier) Notify(level, message string, context map[string]interface{}) {
	entry := n.log.WithFields(logrus.Fields(context)).WithField("event", "notification")
	switch level {
	case NotifyCritical:
		entry.Error(message)
	case NotifyWarning:
		entry.Warn(message)
	default:
		entry.Info(message)
	}
}
