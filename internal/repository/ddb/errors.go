package ddb

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"

	apperrors "kbgraph/pkg/errors"
)

// mapError converts DynamoDB API errors into application errors.
func mapError(operation, resource string, err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.FromContext(err, operation)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ConditionalCheckFailedException":
			return apperrors.NewNotFoundError(resource).WithCause(err)
		case "ResourceNotFoundException":
			return apperrors.NewUnavailableError("dynamodb").WithCause(err).WithCode(ae.ErrorCode())
		case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
			return apperrors.NewUnavailableError("dynamodb").WithCause(err).WithCode(ae.ErrorCode())
		case "ValidationException":
			return apperrors.NewValidationError(ae.ErrorMessage()).WithCause(err)
		}
	}
	return apperrors.NewDatabaseError(operation, err)
}
