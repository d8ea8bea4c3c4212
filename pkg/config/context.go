package config

import "context"

type contextKey struct{}

// ContextWithConfig stores the resolved configuration in the context.
func ContextWithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the configuration attached to the context, or the
// built-in defaults when none was attached.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(contextKey{}).(*Config); ok && cfg != nil {
			return cfg
		}
	}
	return Default()
}
