package mq

const (
	DefaultTopic = "chat_events"
	keySeparator = "/"
)
