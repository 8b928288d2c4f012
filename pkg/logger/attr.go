package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// CompanyID records the provider company identifier under "company_id".
func CompanyID(id string) slog.Attr {
	return slog.String("company_id", id)
}

// BookID records the book identifier under "book_id".
func BookID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("book_id", id)
}

// UserID records the buyer identifier under "user_id".
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// EventID records the webhook event identifier under "event_id".
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// EventType records the webhook event type under "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// TaskName records the queued task name under "task".
func TaskName(name string) slog.Attr {
	return slog.String("task", name)
}

// RetryCount records the retry count under "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records a duration under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
