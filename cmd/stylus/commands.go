package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/swordforge/stylusplugin"
	"github.com/swordforge/stylusplugin/app"
	"github.com/swordforge/stylusplugin/client"
	"github.com/swordforge/stylusplugin/contract"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pluginOptions(cmd)
		if opts.EnvFile != "-" {
			if err := stylusplugin.LoadEnvFile(opts.EnvFile); err != nil {
				return err
			}
		}
		cfg, err := stylusplugin.LoadConfig(opts.ConfigPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config:          %s\n", stylusplugin.ConfigPath(opts.ConfigPath))
		fmt.Fprintf(out, "contract:        %s\n", cfg.ContractAddress().Hex())
		fmt.Fprintf(out, "network:         %s\n", cfg.Contract.Network)
		fmt.Fprintf(out, "rpc url:         %s\n", client.RedactURL(cfg.Contract.RPCURL))
		fmt.Fprintf(out, "deploy tx:       %s\n", cfg.Deployment.TxHash)
		fmt.Fprintf(out, "activation tx:   %s\n", cfg.Deployment.ActivationTxHash)
		fmt.Fprintf(out, "contract size:   %s\n", cfg.Deployment.ContractSize)
		fmt.Fprintf(out, "wasm size:       %s\n", cfg.Deployment.WasmSize)
		fmt.Fprintf(out, "wasm data fee:   %s\n", cfg.Deployment.WasmDataFee)
		fmt.Fprintf(out, "connect timeout: %s\n", cfg.Client.ConnectTimeout)
		for _, sig := range cfg.Functions.Signatures {
			fmt.Fprintf(out, "function:        %s\n", sig)
		}

		key, source, err := stylusplugin.ResolvePrivateKey("", cfg)
		if err != nil {
			fmt.Fprintf(out, "signer:          %v\n", err)
			return nil
		}
		addr, err := stylusplugin.KeyAddress(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "signer:          %s (key %s from %s)\n", addr.Hex(), stylusplugin.RedactKey(key), source)
		return nil
	},
}

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Print the sword counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *stylusplugin.BlockchainClient) error {
			counts, err := c.GetSwordCounts(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, color := range []contract.SwordColor{contract.Red, contract.Green, contract.Blue} {
				fmt.Fprintf(out, "%-6s %s\n", color, counts.Of(color))
			}
			fmt.Fprintf(out, "%-6s %s\n", "total", counts.Total())
			return nil
		})
	},
}

var incrementCmd = &cobra.Command{
	Use:   "increment <red|green|blue|0|1|2>",
	Short: "Send incrementSword for the color",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		color, err := contract.ParseSwordColor(args[0])
		if err != nil {
			return err
		}
		wait, _ := cmd.Flags().GetBool("wait")
		return withClient(cmd, func(ctx context.Context, c *stylusplugin.BlockchainClient) error {
			tx, err := c.IncrementSword(ctx, color)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tx: %s\n", tx.Hash().Hex())
			if !wait {
				return nil
			}
			receipt, err := c.WaitMined(ctx, tx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mined in block %s, gas used %d\n", receipt.BlockNumber, receipt.GasUsed)
			return nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a host app with the blockchain plugin, logging the counters every interval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		strict, _ := cmd.Flags().GetBool("strict")
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := app.New().AddPlugin(&stylusplugin.BlockchainPlugin{Options: pluginOptions(cmd), Strict: strict})
		a.AddSystem(app.Update, "stylus.log_counts", logCounts)
		return a.Run(ctx, interval)
	},
}

func logCounts(ctx context.Context, a *app.App, cmd *app.Commands) error {
	c := app.MustResource[*stylusplugin.BlockchainClient](a)
	if !c.Ready() {
		log.Warn("blockchain client is not ready", zap.Error(c.Err()))
		return nil
	}
	counts, err := c.GetSwordCounts(ctx)
	if err != nil {
		// a failed read shouldn't stop the app, the next tick retries
		log.Warn("can't read counts", zap.Error(err))
		return nil
	}
	log.Info("sword counts",
		zap.Stringer("red", counts.Red),
		zap.Stringer("green", counts.Green),
		zap.Stringer("blue", counts.Blue))
	return nil
}

func init() {
	incrementCmd.Flags().Bool("wait", false, "wait for the receipt")
	runCmd.Flags().Duration("interval", 5*time.Second, "update interval")
	runCmd.Flags().Bool("strict", false, "exit when the client can't be initialized")
}
