package controllers

import "log"

// eventPublisher is satisfied by *events.EventPublisher. Controllers accept
// the interface so tests can substitute a failing publisher.
type eventPublisher interface {
	Publish(eventType string, payload interface{}) error
}

// publishEvent sends a domain event and logs a failure instead of dropping
// it silently.
func publishEvent(logger *log.Logger, publisher eventPublisher, eventType string, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(eventType, payload); err != nil && logger != nil {
		logger.Printf("failed to publish %s event: %v", eventType, err)
	}
}
