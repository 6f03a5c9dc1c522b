package core

import (
	"context"

	"headsetctl/internal/api"
)

// ServeMode runs the local control API until ctx is done.
type ServeMode struct {
	Server *api.Server
}

// Run blocks until shutdown completes.
func (m *ServeMode) Run(ctx context.Context) error {
	return m.Server.Run(ctx)
}
