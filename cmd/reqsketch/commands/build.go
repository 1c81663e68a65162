package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
	"github.com/Sumatoshi-tech/reqsketch/pkg/safeconv"
)

const stdinName = "-"

// ErrOutputRequired is returned when a command that writes a sketch has no --output.
var ErrOutputRequired = errors.New("an output file is required (--output)")

type buildOptions struct {
	sketch  sketchFlags
	output  string
	workers int
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build [files...]",
		Short: "Build a sketch from a stream of items",
		Long: `Build a REQ sketch from whitespace separated items (one item per line
for --type string). Each input file is sketched in parallel and the partial
sketches are merged. Without arguments, or with "-", items are read from stdin.

The output codec follows the file extension: .lz4, .zst or .sz compress the
serialized sketch, anything else stores it raw.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output == "" {
				return ErrOutputRequired
			}

			if len(args) == 0 {
				args = []string{stdinName}
			}

			switch opts.sketch.itemType {
			case typeFloat:
				return runBuild(cmd, floatDomain(), opts, args)
			case typeInt:
				return runBuild(cmd, intDomain(), opts, args)
			case typeString:
				return runBuild(cmd, stringDomain(), opts, args)
			default:
				return unknownType(opts.sketch.itemType)
			}
		},
	}

	opts.sketch.register(cmd)
	cmd.Flags().StringVarP(&opts.output, flagOutput, "o", "", "Sketch file to write")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Inputs sketched concurrently (0 uses GOMAXPROCS)")

	return cmd
}

func runBuild[T any](cmd *cobra.Command, d domain[T], opts buildOptions, inputs []string) error {
	parts, counts, err := sketchInputs(cmd.Context(), d, opts, inputs, cmd.InOrStdin())
	if err != nil {
		return err
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	sk := parts[0]
	for _, part := range parts[1:] {
		err = sk.Merge(part)
		if err != nil {
			return fmt.Errorf("merge partial sketches: %w", err)
		}
	}

	size, err := d.save(opts.output, sk)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %s items from %d input(s), %s retained in %d level(s), %s\n",
		opts.output,
		humanize.Comma(int64(total)),
		len(inputs),
		humanize.Comma(int64(sk.NumRetained())),
		sk.NumLevels(),
		humanize.Bytes(safeconv.MustIntToUint64(size)),
	)

	return nil
}

// sketchInputs builds one sketch per input. Results keep the input order so
// a fixed seed gives the same merged sketch on every run.
func sketchInputs[T any](
	ctx context.Context,
	d domain[T],
	opts buildOptions,
	inputs []string,
	stdin io.Reader,
) ([]*req.Sketch[T], []int, error) {
	parts := make([]*req.Sketch[T], len(inputs))
	counts := make([]int, len(inputs))

	for i := range inputs {
		seed := opts.sketch.seed
		if seed != 0 {
			seed += uint64(i)
		}

		sk, err := d.newSketch(opts.sketch.k, opts.sketch.hra, seed)
		if err != nil {
			return nil, nil, err
		}

		parts[i] = sk
	}

	workers := opts.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, input := range inputs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			n, err := feedInput(d, input, parts[i], stdin)
			counts[i] = n

			return err
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, nil, err
	}

	return parts, counts, nil
}

func feedInput[T any](d domain[T], input string, sk *req.Sketch[T], stdin io.Reader) (int, error) {
	if input == stdinName {
		return d.feed(stdin, sk)
	}

	file, err := os.Open(input)
	if err != nil {
		return 0, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	n, err := d.feed(file, sk)
	if err != nil {
		return n, fmt.Errorf("%s: %w", input, err)
	}

	return n, nil
}
