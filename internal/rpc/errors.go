package rpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/rocket-flight-simulator/aero"
	"github.com/signalsfoundry/rocket-flight-simulator/core"
	"github.com/signalsfoundry/rocket-flight-simulator/kb"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
	"github.com/signalsfoundry/rocket-flight-simulator/motor"
)

// ErrInvalidRequest is returned for requests missing required fields.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps simulator errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidConfiguration),
		errors.Is(err, motor.ErrInvalidMotorData),
		errors.Is(err, aero.ErrInvalidGeometry):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, kb.ErrDuplicate):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, core.ErrCanceled):
		return status.Error(codes.Canceled, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
