package sessionsvc

import (
	"google.golang.org/grpc"

	"github.com/oggyb/miahui/internal/app"
)

// Registrar ties the session service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the session service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the session service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, NewService(r.appCtx))
}
