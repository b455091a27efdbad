package run

import (
	"fmt"
	configpkg "github.com/cirruslabs/mocha/internal/config"
	"github.com/cirruslabs/mocha/internal/fill"
	serverpkg "github.com/cirruslabs/mocha/internal/server"
	"github.com/cirruslabs/mocha/internal/store"
	"github.com/cirruslabs/mocha/internal/transform"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"os"
)

var configPath string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Mocha server",
		RunE:  run,
	}

	cmd.Flags().StringVarP(&configPath, "file", "f", "",
		"configuration file path (e.g. /etc/mocha.yml)")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	if configPath == "" {
		return fmt.Errorf("configuration file path (-f or --file) needs to be specified")
	}

	// Parse the configuration file
	configFile, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to read configuration file at path %s: %w", configPath, err)
	}
	defer func() {
		_ = configFile.Close()
	}()

	config, err := configpkg.Parse(configFile)
	if err != nil {
		return fmt.Errorf("failed to parse configuration file at path %s: %w", configPath, err)
	}

	// Construct the stores
	origin, err := newOrigin(config.Origin)
	if err != nil {
		return err
	}

	cache, err := newCache(config.Cache)
	if err != nil {
		return err
	}

	if err := store.Connect(cmd.Context(), origin, cache); err != nil {
		return err
	}

	// Construct the orchestrator
	opts := []fill.Option{
		fill.WithLogger(zap.S()),
		fill.WithMaxDimension(config.Transform.MaxDimension),
		fill.WithStoreTimeout(config.StoreTimeout),
		fill.WithTransformTimeout(config.Transform.Timeout),
	}

	if config.Transform.MaxOriginSize != "" {
		maxOriginSize, err := humanize.ParseBytes(config.Transform.MaxOriginSize)
		if err != nil {
			return fmt.Errorf("failed to parse maximum origin size value %q: %w",
				config.Transform.MaxOriginSize, err)
		}

		opts = append(opts, fill.WithMaxOriginSize(maxOriginSize))
	}

	sizelessPolicy, err := fill.ParseSizelessPolicy(config.Transform.Sizeless)
	if err != nil {
		return err
	}

	opts = append(opts, fill.WithSizelessPolicy(sizelessPolicy))

	if config.SingleFlight != nil {
		opts = append(opts, fill.WithSingleFlight(*config.SingleFlight))
	}

	engine, err := newEngine(config.Transform)
	if err != nil {
		return err
	}

	orchestrator := fill.New(origin, cache, engine, opts...)

	server, err := serverpkg.New(listenAddr(config.Addr), orchestrator,
		serverpkg.WithLogger(zap.S()),
		serverpkg.WithReadHeaderTimeout(config.ReadHeaderTimeout),
	)
	if err != nil {
		return err
	}

	return server.Run(cmd.Context())
}

func newEngine(config configpkg.Transform) (*transform.Imaging, error) {
	filter, err := transform.ParseFilter(config.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transform.filter: %w", err)
	}

	opts := []transform.Option{
		transform.WithFilter(filter),
		transform.WithMaxPixels(config.MaxPixels),
	}

	if config.AVIFSpeed != nil {
		opts = append(opts, transform.WithAVIFSpeed(*config.AVIFSpeed))
	}

	return transform.New(opts...), nil
}

// listenAddr falls back to the PORT environment variable
// that most container platforms provide.
func listenAddr(addr string) string {
	if addr != "" {
		return addr
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return ":" + port
}
