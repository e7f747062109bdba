package stylusplugin

import (
	"context"

	"go.uber.org/zap"

	"github.com/swordforge/stylusplugin/app"
)

// BlockchainPlugin inserts a *BlockchainClient resource during app startup.
type BlockchainPlugin struct {
	Options Options
	// Strict fails the app startup instead of inserting a client that isn't ready
	Strict bool
}

func (p *BlockchainPlugin) Name() string {
	return PluginName
}

func (p *BlockchainPlugin) Build(a *app.App) {
	a.AddSystem(app.Startup, InitSystemName, p.InitBlockchain)
}

// InitBlockchain is the startup system creating the client resource.
func (p *BlockchainPlugin) InitBlockchain(ctx context.Context, a *app.App, cmd *app.Commands) error {
	c, err := NewBlockchainClient(ctx, p.Options)
	if err != nil {
		if p.Strict {
			return err
		}
		log.Error("failed to initialize blockchain client", zap.Error(err))
		cmd.InsertResource(NotReadyClient(err))
		return nil
	}
	cmd.InsertResource(c)
	return nil
}
