package cmd

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/edmo-der/orchestrator"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		sf      scoringFlags
		workers int
	)
	cmd := &cobra.Command{
		Use:   "batch MANIFEST",
		Short: "Score every reference/system pair listed in a YAML manifest",
		Long: `Score every pair listed in a YAML manifest, in parallel across files.

Manifest:
  collar: 0.25            # optional, overrides config; --collar wins over it
  pairs:
    - name: meeting1      # optional, defaults to the reference file name
      reference: ref/meeting1.rttm
      system: sys/meeting1.rttm

Relative paths are resolved against the manifest directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sf.apply(cmd, a); err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				if workers < 1 {
					return errors.New("--workers must be >= 1")
				}
				a.conf.Batch.Workers = workers
			}
			format, err := orchestrator.ParseFormat(sf.format)
			if err != nil {
				return err
			}
			m, err := orchestrator.LoadManifest(args[0])
			if err != nil {
				return err
			}
			if m.Collar != nil && cmd.Flags().Changed("collar") {
				a.log.WithFields(logrus.Fields{
					"manifest": *m.Collar,
					"flag":     sf.collar,
				}).Warn("--collar overrides the manifest collar")
				m.Collar = nil
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}

			br, err := p.RunBatch(cmd.Context(), *m)
			if err != nil {
				if br != nil {
					_ = orchestrator.WriteBatch(cmd.OutOrStdout(), format, br)
				}
				return err
			}
			if err := a.persistAndPublish(cmd, p, sf.save, br); err != nil {
				return err
			}
			return orchestrator.WriteBatch(cmd.OutOrStdout(), format, br)
		},
	}
	sf.register(cmd)
	cmd.Flags().IntVar(&workers, "workers", 0, "files scored in parallel (overrides batch.workers)")
	return cmd
}
