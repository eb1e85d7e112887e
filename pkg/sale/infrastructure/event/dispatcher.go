package event

import (
	"errors"

	"github.com/sirupsen/logrus"

	"posservice/pkg/common/domain"
)

func NewLogDispatcher(logger logrus.FieldLogger) domain.EventDispatcher {
	return &logDispatcher{logger: logger}
}

type logDispatcher struct {
	logger logrus.FieldLogger
}

func (d *logDispatcher) Dispatch(event domain.Event) error {
	d.logger.WithFields(logrus.Fields{
		"event":   event.Type(),
		"payload": event,
	}).Info("domain event")
	return nil
}

// NewMultiDispatcher hands every event to all dispatchers, even when one
// of them fails.
func NewMultiDispatcher(dispatchers ...domain.EventDispatcher) domain.EventDispatcher {
	return multiDispatcher(dispatchers)
}

type multiDispatcher []domain.EventDispatcher

func (d multiDispatcher) Dispatch(event domain.Event) error {
	var errs []error
	for _, dispatcher := range d {
		if err := dispatcher.Dispatch(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
