package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
	"github.com/Sumatoshi-tech/reqsketch/pkg/report"
)

// Flag names shared by several commands.
const (
	flagType      = "type"
	flagK         = "k"
	flagHRA       = "hra"
	flagSeed      = "seed"
	flagOutput    = "output"
	flagFormat    = "format"
	flagInclusive = "inclusive"
	flagConfig    = "config"
	flagDebug     = "debug"
)

// sketchFlags are the parameters of a newly built sketch.
type sketchFlags struct {
	itemType string
	k        int
	hra      bool
	seed     uint64
}

func (f *sketchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.itemType, flagType, "t", typeFloat, "Item type: float, int or string")
	cmd.Flags().IntVar(&f.k, flagK, req.DefaultK, "Accuracy parameter, even in [4, 1024]")
	cmd.Flags().BoolVar(&f.hra, flagHRA, true, "Favor accuracy at high ranks (false favors low ranks)")
	cmd.Flags().Uint64Var(&f.seed, flagSeed, 0, "Seed for reproducible compactions (0 draws a random seed)")
}

func registerType(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, flagType, "t", typeFloat, "Item type of the sketch files: float, int or string")
}

func registerFormat(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, flagFormat, "f", string(report.FormatTable), "Output format: table, json or yaml")
}
