package authflow

import (
	"context"
	"fmt"
	"testing"
)

func benchEnv(b *testing.B, metrics bool) *testEnv {
	b.Helper()
	return newTestEnv(b, func(c *Config) {
		c.Metrics = MetricsConfig{Enabled: metrics, EnableLatencyHistograms: metrics}
		c.Audit.Enabled = false
	})
}

func BenchmarkLogin(b *testing.B) {
	for _, metrics := range []bool{true, false} {
		b.Run(fmt.Sprintf("metrics=%t", metrics), func(b *testing.B) {
			env := benchEnv(b, metrics)
			env.registerVerified(b, "bench@x.io", "Bench", "pw")
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := env.engine.Login(ctx, "bench@x.io", "pw", ClientInfo{}); err != nil {
					b.Fatalf("Login failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkRegister(b *testing.B) {
	for _, metrics := range []bool{true, false} {
		b.Run(fmt.Sprintf("metrics=%t", metrics), func(b *testing.B) {
			env := benchEnv(b, metrics)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				req := RegisterRequest{Email: fmt.Sprintf("u%d@x.io", i), Name: "N", Password: "pw"}
				if err := env.engine.Register(ctx, req); err != nil {
					b.Fatalf("Register failed: %v", err)
				}
			}
		})
	}
}
