package sessionsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/miahui/internal/app"
	svcErr "github.com/oggyb/miahui/internal/errors"
	"github.com/oggyb/miahui/internal/session"
)

// Service implements SessionService on top of the app's session.
// Intents arrive as JSON objects and snapshots leave as JSON objects, both
// carried in google.protobuf.Struct.
type Service struct {
	sess *session.Session
	log  *slog.Logger
}

// NewService creates the service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		sess: appCtx.Session,
		log:  appCtx.Logger.With("module", "sessionsvc"),
	}
}

// Dispatch applies one intent. A rejected intent fails with the mapped
// status code and the resulting snapshot attached as the status detail, so
// the caller can still render the redirect and notice.
func (s *Service) Dispatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := DecodeIntent(req)
	if err != nil {
		s.log.Debug("Dispatch rejected malformed intent", "err", err)
		return nil, svcErr.InvalidArgument(err.Error())
	}

	s.log.Debug("Dispatch called", "kind", in.Kind)
	snap, dispatchErr := s.sess.Dispatch(ctx, in)

	out, err := EncodeSnapshot(snap)
	if err != nil {
		s.log.Error("failed to encode snapshot", "err", err)
		return nil, svcErr.Map(err)
	}
	if dispatchErr != nil {
		return nil, svcErr.WithDetails(svcErr.Map(dispatchErr), out)
	}
	return out, nil
}

// Snapshot returns the current state.
func (s *Service) Snapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := EncodeSnapshot(s.sess.Snapshot())
	if err != nil {
		s.log.Error("failed to encode snapshot", "err", err)
		return nil, svcErr.Map(err)
	}
	return out, nil
}

// DecodeIntent reads an intent from its JSON object form.
func DecodeIntent(req *structpb.Struct) (session.Intent, error) {
	var in session.Intent
	if req == nil {
		return in, fmt.Errorf("intent is required")
	}
	raw, err := protojson.Marshal(req)
	if err != nil {
		return in, fmt.Errorf("failed to marshal intent: %w", err)
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("malformed intent: %w", err)
	}
	if in.Kind == "" {
		return in, fmt.Errorf("intent kind is required")
	}
	return in, nil
}

// EncodeSnapshot converts a snapshot to its JSON object form.
func EncodeSnapshot(snap session.Snapshot) (*structpb.Struct, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("failed to convert snapshot: %w", err)
	}
	return out, nil
}
