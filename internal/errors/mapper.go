// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"gorm.io/gorm"

	"github.com/oggyb/miahui/internal/account"
	"github.com/oggyb/miahui/internal/catalog"
	"github.com/oggyb/miahui/internal/chat"
	"github.com/oggyb/miahui/internal/matching"
	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/moderation"
	"github.com/oggyb/miahui/internal/payment"
	"github.com/oggyb/miahui/internal/prefs"
	"github.com/oggyb/miahui/internal/session"
	"github.com/oggyb/miahui/internal/support"
	"github.com/oggyb/miahui/internal/utils/pagination"
	"github.com/oggyb/miahui/internal/wallet"
)

var table = []struct {
	code codes.Code
	errs []error
}{
	{codes.FailedPrecondition, []error{
		wallet.ErrInsufficientFunds,
		matching.ErrNotConnected,
		chat.ErrNotRecallable,
	}},
	{codes.ResourceExhausted, []error{wallet.ErrTrialExhausted}},
	{codes.PermissionDenied, []error{moderation.ErrBlocked, account.ErrWrongPassword}},
	{codes.Unauthenticated, []error{session.ErrNotLoggedIn}},
	{codes.Aborted, []error{
		matching.ErrBusy,
		payment.ErrChargeBusy,
		account.ErrBusy,
		session.ErrMembershipPending,
	}},
	{codes.AlreadyExists, []error{account.ErrAlreadyBound}},
	{codes.NotFound, []error{
		gorm.ErrRecordNotFound,
		prefs.ErrNotFound,
		chat.ErrMessageNotFound,
		catalog.ErrUnknownCounterpart,
		catalog.ErrUnknownGift,
		catalog.ErrUnknownPackage,
		payment.ErrUnknownCharge,
		support.ErrUnknownFAQ,
	}},
	{codes.InvalidArgument, []error{
		session.ErrInvalidIntent,
		session.ErrUnknownIntent,
		session.ErrNoCounterpart,
		session.ErrUnknownTag,
		chat.ErrEmptyMessage,
		support.ErrEmptyQuestion,
		payment.ErrUnknownRail,
		model.ErrEmptyDisplayName,
		model.ErrTooManyTags,
		model.ErrDuplicateTag,
		model.ErrAgeOutOfRange,
		account.ErrWeakPassword,
		account.ErrInvalidPhone,
		account.ErrInvalidRealName,
		wallet.ErrInvalidAmount,
		pagination.ErrInvalidToken,
	}},
	{codes.DeadlineExceeded, []error{context.DeadlineExceeded}},
	{codes.Canceled, []error{context.Canceled}},
}

// Map converts domain and infra errors into gRPC status errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), err.Error())
}

// Code is the gRPC code Map would use for err.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	for _, row := range table {
		for _, target := range row.errs {
			if errors.Is(err, target) {
				return row.code
			}
		}
	}
	// fallback → bubble up error message for debugging
	return codes.Internal
}

// WithDetails attaches details to a status error, returning err unchanged
// when it carries no status or the details cannot be encoded.
func WithDetails(err error, details ...protoadapt.MessageV1) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	withDetails, derr := st.WithDetails(details...)
	if derr != nil {
		return err
	}
	return withDetails.Err()
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}
