package cmd

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/edmo-der/der"
	"github.com/maastricht-university/edmo-der/orchestrator"
)

type scoringFlags struct {
	collar   float64
	tieBreak string
	format   string
	save     bool
}

func (f *scoringFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.collar, "collar", 0, "collar in seconds added around every boundary (overrides config)")
	cmd.Flags().StringVar(&f.tieBreak, "tie-break", "", "mapping tie break: insertion|speaker_id (overrides config)")
	cmd.Flags().StringVar(&f.format, "format", "text", "output format: text|json|yaml")
	cmd.Flags().BoolVar(&f.save, "save", false, "persist results under paths.outputs")
}

// apply copies explicitly set flags onto the loaded config.
func (f *scoringFlags) apply(cmd *cobra.Command, a *app) error {
	if cmd.Flags().Changed("collar") {
		if f.collar < 0 {
			return errors.New("--collar must be >= 0")
		}
		a.conf.Scoring.Collar = f.collar
	}
	if f.tieBreak != "" {
		if _, err := der.ParseTieBreak(f.tieBreak); err != nil {
			return err
		}
		a.conf.Scoring.TieBreak = f.tieBreak
	}
	return nil
}

func newScoreCmd(a *app) *cobra.Command {
	var (
		sf        scoringFlags
		refPath   string
		sysPath   string
		audioPath string
		name      string
		intervals bool
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one system timeline against a reference",
		Example: `  edmo-der score --ref ref.rttm --sys sys.rttm --collar 0.25
  edmo-der score --ref ref.rttm --audio session.wav --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (sysPath == "") == (audioPath == "") {
				return errors.New("exactly one of --sys or --audio is required")
			}
			if err := sf.apply(cmd, a); err != nil {
				return err
			}
			format, err := orchestrator.ParseFormat(sf.format)
			if err != nil {
				return err
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			if name == "" {
				name = orchestrator.PairName(refPath)
			}

			var r *orchestrator.Report
			if audioPath != "" {
				r, err = p.ScoreAudio(cmd.Context(), name, refPath, audioPath)
			} else {
				r, err = p.ScoreFiles(cmd.Context(), orchestrator.Pair{Name: name, Reference: refPath, System: sysPath})
			}
			if err != nil {
				return err
			}

			if err := a.persistAndPublish(cmd, p, sf.save, orchestrator.Single(r)); err != nil {
				return err
			}
			return orchestrator.WriteReport(cmd.OutOrStdout(), format, r, intervals)
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&refPath, "ref", "", "reference RTTM file")
	cmd.Flags().StringVar(&sysPath, "sys", "", "system RTTM file")
	cmd.Flags().StringVar(&audioPath, "audio", "", "audio file to diarize with the diarization service instead of --sys")
	cmd.Flags().StringVar(&name, "name", "", "pair name (default: reference file name)")
	cmd.Flags().BoolVar(&intervals, "intervals", false, "include the classified intervals in the output")
	_ = cmd.MarkFlagRequired("ref")
	return cmd
}

// persistAndPublish saves the reports when asked and pushes overlays to the
// visualization service when one is configured.
func (a *app) persistAndPublish(cmd *cobra.Command, p *orchestrator.Pipeline, save bool, br *orchestrator.BatchReport) error {
	var sid, dir string
	if save {
		var err error
		if sid, dir, err = orchestrator.Persist(a.conf.Paths.Outputs, br); err != nil {
			return err
		}
		a.log.WithFields(logrus.Fields{"session": sid, "dir": dir}).Info("results saved")
	}
	if n := p.Publish(cmd.Context(), sid, dir, br.Reports); n > 0 {
		a.log.WithField("overlays", n).Info("overlays published")
	}
	return nil
}
