package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/mosadd1X/novelforge-ai-sub003/cache"
)

func ExampleNewMemoryCache() {
	c := cache.NewMemoryCache(128)
	ctx := context.Background()

	// Store a generated response
	_ = c.Set(ctx, "genai:gemini-2.0-flash:abc123", []byte("Once upon a time..."), 5*time.Minute)

	// Retrieve it
	value, ok := c.Get(ctx, "genai:gemini-2.0-flash:abc123")
	if ok {
		fmt.Println("Cached:", string(value))
	}
	// Output:
	// Cached: Once upon a time...
}

func ExampleDefaultKeyer_Key() {
	keyer := cache.NewDefaultKeyer()

	key, _ := keyer.Key("gemini-2.0-flash", "write the opening scene", map[string]any{
		"temperature": 0.7,
	})
	again, _ := keyer.Key("gemini-2.0-flash", "write the opening scene", map[string]any{
		"temperature": 0.7,
	})
	fmt.Println("Deterministic:", key == again)
	// Output:
	// Deterministic: true
}

func ExamplePolicy_EffectiveTTL() {
	policy := cache.Policy{DefaultTTL: time.Hour, MaxTTL: 2 * time.Hour}

	fmt.Println(policy.EffectiveTTL(0))
	fmt.Println(policy.EffectiveTTL(30 * time.Minute))
	fmt.Println(policy.EffectiveTTL(5 * time.Hour))
	// Output:
	// 1h0m0s
	// 30m0s
	// 2h0m0s
}
