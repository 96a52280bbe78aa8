package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// TopicContentChanged fires after any successful content mutation. Subscribers
// include the read cache, which drops every slot on receipt.
const TopicContentChanged = "content.changed"

var (
	instance evbus.Bus
	once     sync.Once
)

// Get returns the process-wide bus instance.
func Get() evbus.Bus {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates an independent bus, used by tests and by services that want
// isolation from the global instance.
func New() evbus.Bus {
	return evbus.New()
}

// Publish publishes on the process-wide bus.
func Publish(topic string, args ...interface{}) {
	Get().Publish(topic, args...)
}

// Subscribe registers a handler on the process-wide bus.
func Subscribe(topic string, fn interface{}) error {
	return Get().Subscribe(topic, fn)
}
