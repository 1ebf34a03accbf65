package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pricescout-project/backend/internal/config"
	"github.com/pricescout-project/backend/internal/keepa"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Display credential status (without showing actual values)
	fmt.Println("=== Keepa Credentials Check ===")
	fmt.Printf("API URL: %s\n", cfg.Keepa.APIURL)
	fmt.Printf("API Key: %s\n", statusString(cfg.Keepa.APIKey != ""))
	fmt.Println()

	if cfg.Keepa.APIKey == "" {
		log.Fatalf("❌ Missing required credential. Please set KEEPA_API_KEY in your .env file.")
	}

	// The /token endpoint is free, so this check spends no budget.
	fmt.Println("Testing token status request...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := keepa.NewClient(cfg)
	status, err := client.TokenStatus(ctx)
	if err != nil {
		fmt.Printf("❌ Token status request failed: %v\n", err)
		fmt.Println("\nThis indicates:")
		fmt.Println("  - API key is invalid or expired")
		fmt.Println("  - The API URL is wrong or unreachable")
		log.Fatalf("Keepa authentication test failed")
	}

	fmt.Printf("✅ Token status request succeeded! %d tokens left, refilling %d/min\n",
		status.TokensLeft, status.RefillRate)
	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Println("✅ Keepa credentials are VALID and working!")
	fmt.Printf("   Daily budget configured: %d tokens\n", cfg.Keepa.DailyTokenBudget)
}

func statusString(set bool) string {
	if set {
		return "[SET]"
	}
	return "[NOT SET]"
}
