// Package intent classifies inbound request text into one of the two quote
// skills. The classifier is a heuristic, not a parser: it is deterministic,
// side-effect free and total. Ambiguous input degrades to "topic = whole
// message" instead of failing, which is intentionally lossy.
package intent

import (
	"strings"
)

// Kind identifies the classified request type.
type Kind string

const (
	KindRandomQuote Kind = "random_quote"
	KindTopicQuote  Kind = "topic_quote"
)

// Intent is the classification result for one inbound message.
type Intent struct {
	Kind  Kind
	Topic string // set only for KindTopicQuote
}

// randomTriggers are matched case-insensitively as substrings. Any hit routes
// the request to the random-quote skill.
var randomTriggers = []string{
	"random",
	"surprise me",
	"surprise",
	"any quote",
	"any topic",
	"choose",
}

// topicConnectors introduce the topic portion of a request, e.g.
// "generate a quote about courage" -> "courage".
var topicConnectors = []string{
	" about ",
	" regarding ",
	" on ",
}

// Classify maps request text to an Intent. It always returns a value.
func Classify(text string) Intent {
	lowered := strings.ToLower(strings.TrimSpace(text))

	for _, trigger := range randomTriggers {
		if strings.Contains(lowered, trigger) {
			return Intent{Kind: KindRandomQuote}
		}
	}

	for _, connector := range topicConnectors {
		if idx := strings.Index(lowered, connector); idx >= 0 {
			topic := strings.TrimSpace(lowered[idx+len(connector):])
			topic = strings.TrimRight(topic, "?.! ")
			if topic != "" {
				return Intent{Kind: KindTopicQuote, Topic: topic}
			}
		}
	}

	// No connector found: the whole message is the topic.
	topic := strings.TrimRight(lowered, "?.! ")
	if topic == "" {
		topic = "general inspiration"
	}
	return Intent{Kind: KindTopicQuote, Topic: topic}
}
