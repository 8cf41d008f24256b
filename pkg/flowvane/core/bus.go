package core

import "context"

// ServiceBus is the cross-module dispatch boundary. Namespaced action
// names ("billing.capture") are offered to the bus before the action
// registry, letting a transition's side effect live in another module
// without a compile-time dependency on it.
type ServiceBus interface {
	HasService(name string) bool
	Call(ctx context.Context, name string, payload map[string]any) error
}
