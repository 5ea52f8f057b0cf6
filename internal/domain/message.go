package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// TimestampLayout is ISO-8601 with millisecond precision, always in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Message is immutable once appended to a room history.
type Message struct {
	ID         ulid.ULID
	Text       string
	Sender     UserID
	SenderName string
	Timestamp  time.Time
}
