package authflow

import "context"

type clientInfoContextKey struct{}

// WithClientInfo attaches the caller's IP and user agent to ctx. The Engine
// reads it for audit events of operations that do not take ClientInfo
// explicitly.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoContextKey{}, info)
}

// ClientInfoFromContext returns the ClientInfo stored by WithClientInfo.
func ClientInfoFromContext(ctx context.Context) ClientInfo {
	if ctx == nil {
		return ClientInfo{}
	}
	info, _ := ctx.Value(clientInfoContextKey{}).(ClientInfo)
	return info
}
