package reasoning

import (
	"time"

	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

// RequestEvent is emitted right before an attempt is sent.
type RequestEvent struct {
	Attempt     int
	Endpoint    string
	Instruction string
	Image       []byte
	SentAt      time.Time
}

// ResponseEvent is emitted after a body was received and validated.
type ResponseEvent struct {
	Attempt  int
	Status   int
	Body     []byte
	Response *vision.Response
	// Image is the screenshot that produced this response.
	Image    []byte
	Duration time.Duration
}

// ErrorEvent is emitted for every failed attempt, retried or not.
type ErrorEvent struct {
	Attempt  int
	Err      error
	Body     []byte
	Duration time.Duration
}

// Observer receives side-channel notifications from the client. Observers
// must not block for long and cannot influence the outcome of Reason.
type Observer interface {
	RequestSent(RequestEvent)
	ResponseReceived(ResponseEvent)
	RequestFailed(ErrorEvent)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) RequestSent(RequestEvent)       {}
func (NopObserver) ResponseReceived(ResponseEvent) {}
func (NopObserver) RequestFailed(ErrorEvent)       {}

// MultiObserver fans events out to several observers.
type MultiObserver []Observer

func (m MultiObserver) RequestSent(e RequestEvent) {
	for _, o := range m {
		o.RequestSent(e)
	}
}

func (m MultiObserver) ResponseReceived(e ResponseEvent) {
	for _, o := range m {
		o.ResponseReceived(e)
	}
}

func (m MultiObserver) RequestFailed(e ErrorEvent) {
	for _, o := range m {
		o.RequestFailed(e)
	}
}
