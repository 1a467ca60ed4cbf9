package kafka

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/dagflow/errors"
)

// IsConnectionError reports whether err comes from the network rather
// than from the broker's answer.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	// kafkago.Error also satisfies net.Error, so broker answers are sorted first.
	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr == kafkago.BrokerNotAvailable ||
			kerr == kafkago.LeaderNotAvailable ||
			kerr == kafkago.NetworkException
	}
	var nerr net.Error
	return errors.As(err, &nerr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// IsRetryableError reports whether a write or read may succeed when tried again.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var werr kafkago.WriteErrors
	if errors.As(err, &werr) {
		for _, e := range werr {
			if e != nil && !IsRetryableError(e) {
				return false
			}
		}
		return true
	}
	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	return IsConnectionError(err)
}

// FromKafka converts a Kafka error to an AppError.
func FromKafka(err error, topic string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	switch {
	case IsConnectionError(err):
		return (&apperrors.AppError{
			Code:       apperrors.ErrCodeServiceUnavailable,
			Message:    "message bus is unavailable",
			HTTPStatus: http.StatusServiceUnavailable,
			Retryable:  true,
			Details:    map[string]any{"topic": topic},
		}).WithCause(err)
	case IsRetryableError(err):
		return apperrors.ExternalServiceError("kafka", err).WithDetail("topic", topic)
	}
	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return (&apperrors.AppError{
			Code:       apperrors.ErrCodeInvalidInput,
			Message:    "message rejected by broker: " + kerr.Title(),
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]any{"topic": topic},
		}).WithCause(err)
	}
	return apperrors.Internal(err)
}
