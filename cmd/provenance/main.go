package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anushreemehta6/predict-provenance-chain/config"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/content"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/events"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/history"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/metrics"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/registry"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/roles"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/submitter"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/verifier"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet"
)

// app wires the provenance client components for one CLI invocation.
type app struct {
	rpc      *registry.EthRPC
	manager  *wallet.Manager
	gateway  *registry.Gateway
	resolver *roles.Resolver
	pipeline *submitter.Pipeline
	history  *history.Synchronizer
	verifier *verifier.Verifier
	content  *content.Store
	redis    *redis.Client
}

func newApp(ctx context.Context) (*app, error) {
	settings := config.SettingsObj

	rpc, err := registry.DialEthRPC(ctx, settings.RPCURL, settings.PrivateKey, settings.ChainID)
	if err != nil {
		return nil, err
	}

	provider, err := wallet.NewKeyProvider(settings.PrivateKey, rpc.ChainID)
	if err != nil {
		rpc.Close()
		return nil, err
	}

	target := wallet.SepoliaMetadata
	target.ChainID = settings.ChainID
	target.RPCURL = settings.RPCURL
	manager := wallet.NewManager(provider, target)

	gateway, err := registry.NewGateway(&registry.Config{
		RPC:             rpc,
		Wallet:          manager,
		ContractAddress: settings.Contract,
		EventBatchSize:  settings.EventBlockBatchSize,
	})
	if err != nil {
		rpc.Close()
		return nil, err
	}

	a := &app{
		rpc:      rpc,
		manager:  manager,
		gateway:  gateway,
		resolver: roles.NewResolver(gateway, manager),
	}

	if settings.IPFSEnabled {
		store, err := content.NewStore(settings.IPFSAPIURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.content = store
	}

	var sink events.Sink
	if settings.RedisEnabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", settings.RedisHost, settings.RedisPort),
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
		})
		sink = events.NewPublisher(a.redis, settings.EventChannel)
	}

	a.pipeline = submitter.NewPipeline(&submitter.Config{
		Gateway:             gateway,
		Resolver:            a.resolver,
		Wallet:              manager,
		Sink:                sink,
		ConfirmationTimeout: settings.ConfirmationTimeout,
	})
	a.history = history.NewSynchronizer(gateway, settings.EventStartBlock, sink)
	a.verifier = verifier.NewVerifier(gateway, sink)

	if settings.MetricsEnabled {
		go func() {
			if err := metrics.Serve(settings.MetricsPort); err != nil {
				log.WithError(err).Warn("Metrics server stopped")
			}
		}()
	}

	return a, nil
}

// connect establishes the wallet session required for writes.
func (a *app) connect(ctx context.Context) error {
	status, err := a.manager.Connect(ctx)
	if err != nil {
		return err
	}
	if status.State == wallet.StateWrongNetwork {
		return fmt.Errorf("connected on chain %d but chain %d is required",
			status.NetworkID, a.manager.TargetNetwork().ChainID)
	}
	return nil
}

func (a *app) Close() {
	a.resolver.Close()
	a.manager.Close()
	a.rpc.Close()
	if a.redis != nil {
		a.redis.Close()
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "provenance",
		Short: "Track and verify AI-prediction provenance records on-chain",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadConfig()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newStatusCmd(),
		newSubmitCmd(),
		newHistoryCmd(),
		newVerifyCmd(),
		newGrantReporterCmd(),
		newRevokeReporterCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
