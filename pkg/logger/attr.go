package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RequestID records the notification request identifier under the key
// "request_id". If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// RecipientID records the recipient identifier under the key "recipient_id".
// If id is nil, it returns an empty Attr.
func RecipientID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("recipient_id", id)
}

// Channel records the delivery channel under the key "channel".
func Channel(channel any) slog.Attr {
	if channel == nil {
		return slog.Attr{}
	}
	return slog.Any("channel", channel)
}

// Topic records the bus topic under the key "topic".
func Topic(topic string) slog.Attr {
	return slog.String("topic", topic)
}

// Producer records the producing system's name under the key "producer".
func Producer(name string) slog.Attr {
	return slog.String("producer", name)
}

// Status records a delivery status under the key "status".
func Status(status any) slog.Attr {
	if status == nil {
		return slog.Attr{}
	}
	return slog.Any("status", status)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
