package stylusplugin_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/swordforge/stylusplugin"
	"github.com/swordforge/stylusplugin/app"
	"github.com/swordforge/stylusplugin/contract"
)

// TestExampleUsage runs against a real node: it needs a Stylus.toml (or STYLUS_CONFIG)
// pointing to a deployed sword counter contract.
func TestExampleUsage(t *testing.T) {
	err := godotenv.Load()
	if err != nil {
		t.Log("Note: .env file not found or could not be loaded. Proceeding with existing environment variables.")
	}

	path := stylusplugin.ConfigPath("")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("Skipping test: %s not found", path)
	}

	a := app.New().AddPlugin(&stylusplugin.BlockchainPlugin{Strict: true, Options: stylusplugin.Options{ConfigPath: path}})
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Error starting app: %v", err)
	}
	defer a.Close(ctx)

	c := app.MustResource[*stylusplugin.BlockchainClient](a)
	t.Log("Contract:", c.Address().Hex(), "from:", c.From().Hex())

	before, err := c.GetSwordCounts(ctx)
	if err != nil {
		t.Fatalf("Error reading counts: %v", err)
	}
	t.Log("Counts before:", before)

	receipt, err := c.IncrementSwordAndWait(ctx, contract.Green)
	if err != nil {
		t.Fatalf("Error sending incrementSword: %v", err)
	}
	t.Log("Mined in block", receipt.BlockNumber)

	after, err := c.GetSwordCounts(ctx)
	if err != nil {
		t.Fatalf("Error reading counts: %v", err)
	}
	if after.Green.Cmp(before.Green) <= 0 {
		t.Fatalf("green counter did not grow: %v -> %v", before.Green, after.Green)
	}
}

func ExampleBlockchainPlugin() {
	a := app.New().AddPlugin(&stylusplugin.BlockchainPlugin{})
	a.AddSystem(app.Update, "game.show_counts", func(ctx context.Context, a *app.App, cmd *app.Commands) error {
		c := app.MustResource[*stylusplugin.BlockchainClient](a)
		if !c.Ready() {
			return nil
		}
		counts, err := c.GetSwordCounts(ctx)
		if err != nil {
			return err
		}
		fmt.Println(counts)
		return nil
	})

	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		fmt.Println(err)
		return
	}
	defer a.Close(ctx)
	_ = a.Update(ctx)
}
