package dynamodb

import (
	"errors"

	"github.com/aws/smithy-go"

	pkgerrors "eden-backend/pkg/errors"
)

// dbError classifies an SDK failure. Throttling maps to a rate-limit error
// and a missing table to an unavailable store; everything else is a
// database error.
func dbError(operation string, err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return pkgerrors.NewDatabaseError(operation, err)
	}

	switch ae.ErrorCode() {
	case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
		return pkgerrors.NewRateLimitError("storage is throttled, retry shortly").WithCause(err)
	case "ResourceNotFoundException":
		return pkgerrors.NewUnavailableError("dynamodb").WithCause(err)
	default:
		return pkgerrors.NewDatabaseError(operation, err).WithCode(ae.ErrorCode())
	}
}
