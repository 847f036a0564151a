package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/ugparu/avchw/encoder/h264/params"
	"github.com/ugparu/avchw/utils/logger"
)

type options struct {
	logLevel string
	caps     string
	platform string
	sps      string
	pps      string
}

func (o *options) addDeviceFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.caps, "caps", "gen12", "device caps: preset name or YAML file")
	fs.StringVar(&o.platform, "platform", params.PlatformGen12.String(), "hardware generation")
	fs.StringVar(&o.sps, "sps", "", "file with a caller SPS to reproduce verbatim")
	fs.StringVar(&o.pps, "pps", "", "file with a caller PPS to reproduce verbatim")
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	o := &options{}

	run := func(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(o.logLevel)
			if err != nil {
				return err
			}
			logger.Init(lvl)
			slog.SetDefault(logger.Slog())
			return fn(cmd, args)
		}
	}

	var query bool
	cmdCanon := &cobra.Command{
		Use:   "canon CONFIG",
		Short: "canonicalize an encoder configuration against device caps",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(_ *cobra.Command, args []string) error {
			return doCanon(stdout, o, args[0], query)
		}),
	}
	cmdCanon.Flags().BoolVar(&query, "query", false, "report corrections without resolving defaults")

	cmdReset := &cobra.Command{
		Use:   "reset OLD NEW",
		Short: "check whether a running encoder can switch configurations",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: run(func(_ *cobra.Command, args []string) error {
			return doReset(stdout, o, args[0], args[1])
		}),
	}

	var avcc bool
	cmdHeaders := &cobra.Command{
		Use:   "headers CONFIG",
		Short: "write the SPS, PPS and SEI units of the first access unit",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(_ *cobra.Command, args []string) error {
			return doHeaders(stdout, o, args[0], avcc)
		}),
	}
	cmdHeaders.Flags().BoolVar(&avcc, "avcc", false, "write an AVCDecoderConfigurationRecord instead of Annex B")

	cmdProbe := &cobra.Command{
		Use:   "probe FILE",
		Short: "describe the NAL units of an H.264 stream",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(_ *cobra.Command, args []string) error {
			return doProbe(stdout, args[0])
		}),
	}

	for _, cmd := range []*cobra.Command{cmdCanon, cmdReset, cmdHeaders} {
		o.addDeviceFlags(cmd.Flags())
	}

	rootCmd := &cobra.Command{Use: "avctool", SilenceUsage: true}
	rootCmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "warning", "logrus level")
	rootCmd.SetOut(stdout)
	rootCmd.AddCommand(cmdCanon, cmdReset, cmdHeaders, cmdProbe)
	return rootCmd
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
