package key

import (
	"fmt"
	"github.com/cirruslabs/mocha/internal/asset"
	"github.com/cirruslabs/mocha/internal/cachekey"
	"github.com/cirruslabs/mocha/internal/fill"
	"github.com/spf13/cobra"
	"net/url"
	"strings"
)

var maxDimension int
var sizeless string
var reverse bool

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key PATH [QUERY]",
		Short: "Print the cache key under which a transformed asset is stored",
		Example: "  mocha key /img/cat.jpg 'w=300&format=avif'\n" +
			"  mocha key img/cat.jpg '?h=100'\n" +
			"  mocha key --reverse cache/img/cat.jpg.d2eae7334ffd72b60774b4d437c01683",
		Args: cobra.RangeArgs(1, 2),
		RunE: runKey,
	}

	cmd.Flags().IntVar(&maxDimension, "max-dimension", asset.DefaultMaxDimension,
		"maximum allowed width and height")
	cmd.Flags().StringVar(&sizeless, "sizeless", string(fill.SizelessOriginal),
		"how to treat transformable assets requested without parameters (\"original\" or \"transform\")")
	cmd.Flags().BoolVar(&reverse, "reverse", false,
		"treat PATH as a cache key and print the asset path it was derived from")

	return cmd
}

func runKey(cmd *cobra.Command, args []string) error {
	if reverse {
		return runReverse(cmd, args)
	}

	sizelessPolicy, err := fill.ParseSizelessPolicy(sizeless)
	if err != nil {
		return err
	}

	assetPath, err := asset.NormalizePath(args[0])
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", args[0], err)
	}

	var query url.Values

	if len(args) > 1 {
		query, err = url.ParseQuery(strings.TrimPrefix(args[1], "?"))
		if err != nil {
			return fmt.Errorf("failed to parse query %q: %w", args[1], err)
		}
	}

	if asset.Classify(assetPath) == asset.PassThrough ||
		(sizelessPolicy == fill.SizelessOriginal && asset.Sizeless(query)) {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s is served from the origin as is, nothing is cached\n",
			assetPath)

		return err
	}

	params, err := asset.ParseParams(query, asset.ParseOptions{
		MaxDimension: maxDimension,
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cachekey.Derive(assetPath, params))

	return err
}

func runReverse(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("--reverse accepts a single cache key")
	}

	assetPath, ok := cachekey.AssetPath(args[0])
	if !ok {
		return fmt.Errorf("%q is not a cache key", args[0])
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), assetPath)

	return err
}
