package server

import "google.golang.org/grpc"

// Registrar is a common interface for all gRPC service registrars,
// e.g. the health service in internal/service/health.
type Registrar interface {
	Register(s *grpc.Server)
}
