package dispatch

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrClientError      = errors.New("client error")
	ErrServerError      = errors.New("server error")
	ErrTransportFailure = errors.New("request failed")
)

// Kind classifies the result of a single webhook delivery
type Kind int

const (
	// Unknown is the zero value: no delivery has been classified. It is never Ok
	Unknown Kind = iota

	// Success indicates that a response was received with a status outside of the 4xx
	// and 5xx ranges
	Success

	// ClientError indicates a response with a 4xx status
	ClientError

	// ServerError indicates a response with a 5xx status
	ServerError

	// TransportFailure indicates that no response was received at all: DNS resolution,
	// connection, TLS or mid-transfer failures all end up here
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case Unknown:
		return "unknown"
	case Success:
		return "success"
	case ClientError:
		return "client_error"
	case ServerError:
		return "server_error"
	case TransportFailure:
		return "transport_failure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Classify maps an HTTP status code to an outcome kind
func Classify(statusCode int) Kind {
	switch {
	case statusCode >= 400 && statusCode <= 499:
		return ClientError
	case statusCode >= 500 && statusCode <= 599:
		return ServerError
	}
	return Success
}

// Outcome is the terminal result of a call to Dispatcher.Send
type Outcome struct {
	Kind       Kind   `json:"outcome"`
	DeliveryId string `json:"deliveryId"`

	// StatusCode and Status describe the response; both are empty for a
	// TransportFailure
	StatusCode int    `json:"statusCode,omitempty"`
	Status     string `json:"status,omitempty"`

	// Message describes the transport error for a TransportFailure
	Message string `json:"message,omitempty"`

	// ResponseBytes is the number of response body bytes read. DecodeError notes a
	// failure to read the body as text, which never affects Kind
	ResponseBytes int    `json:"responseBytes"`
	DecodeError   string `json:"decodeError,omitempty"`

	Elapsed time.Duration `json:"elapsedNanoseconds"`
}

// Ok reports whether the delivery succeeded
func (o Outcome) Ok() bool {
	return o.Kind == Success
}

// Err returns nil for a successful delivery, or an error wrapping one of
// ErrClientError, ErrServerError or ErrTransportFailure
func (o Outcome) Err() error {
	switch o.Kind {
	case Success:
		return nil
	case ClientError:
		return fmt.Errorf("%w: %s", ErrClientError, o.Status)
	case ServerError:
		return fmt.Errorf("%w: %s", ErrServerError, o.Status)
	case TransportFailure:
		return fmt.Errorf("%w: %s", ErrTransportFailure, o.Message)
	}
	return fmt.Errorf("unrecognized outcome %s", o.Kind)
}
