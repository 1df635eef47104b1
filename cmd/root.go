package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/maastricht-university/edmo-der/config"
	"github.com/maastricht-university/edmo-der/logging"
	"github.com/maastricht-university/edmo-der/metrics"
	"github.com/maastricht-university/edmo-der/orchestrator"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string
	textfile  string

	conf *cfg.Root
	log  *logrus.Logger
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "edmo-der",
		Short: "Diarization error rate scoring for EDMO sessions",
		Long: `edmo-der compares a hypothesis speaker timeline against a reference
timeline and reports missed speech (MS), false alarm (FA), speaker
error (SER) and their sum, the diarization error rate (DER).

Timelines are read from RTTM files or produced by the diarization
service configured under services.diarization.url.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.conf == nil || a.conf.Metrics.Textfile == "" {
				return nil
			}
			if err := metrics.WriteTextfile(a.conf.Metrics.Textfile); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: config/$CONFIG_ENV/config.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text|json (overrides config)")
	pf.StringVar(&a.textfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newScoreCmd(a),
		newBatchCmd(a),
		newDiarizeCmd(a),
		newConvertCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	conf, err := cfg.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		conf.Pipeline.LogLvl = a.logLevel
	}
	if a.logFormat != "" {
		conf.Pipeline.LogFormat = a.logFormat
	}
	if a.textfile != "" {
		conf.Metrics.Textfile = a.textfile
	}

	log, err := logging.New(logging.Config{
		Level:  conf.Pipeline.LogLvl,
		Format: conf.Pipeline.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	if conf.File != "" {
		log.WithField("file", conf.File).Debug("config loaded")
	}
	a.conf, a.log = conf, log
	return nil
}

func (a *app) pipeline() (*orchestrator.Pipeline, error) {
	return orchestrator.NewPipeline(a.conf, a.log)
}

func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
