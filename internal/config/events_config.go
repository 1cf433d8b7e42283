package config

import "strings"

type EventsConfig interface {
	GetKafkaBrokers() []string
	GetEventTopics() map[string]string
}

type Events struct {
	src values
}

var _ EventsConfig = Events{}

// GetKafkaBrokers returns no brokers when events should only be logged
func (e Events) GetKafkaBrokers() []string {
	return e.src.list("KAFKA_BROKERS")
}

// GetEventTopics maps event types to topics, read from EVENT_TOPICS as "type=topic,type=topic"
func (e Events) GetEventTopics() map[string]string {
	topics := map[string]string{}
	for _, pair := range e.src.list("EVENT_TOPICS") {
		if eventType, topic, ok := strings.Cut(pair, "="); ok {
			topics[strings.TrimSpace(eventType)] = strings.TrimSpace(topic)
		}
	}
	return topics
}
