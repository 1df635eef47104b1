package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/edmo-der/orchestrator"
	"github.com/maastricht-university/edmo-der/rttm"
)

func newDiarizeCmd(a *app) *cobra.Command {
	var out, fileID string
	cmd := &cobra.Command{
		Use:   "diarize AUDIO",
		Short: "Run the diarization service on an audio file and write RTTM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio := args[0]
			if fileID == "" {
				fileID = orchestrator.PairName(audio)
			}
			if out == "" {
				out = fileID + ".rttm"
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			segs, err := p.Diarize(cmd.Context(), audio)
			if err != nil {
				return err
			}
			if err := rttm.WriteFile(out, fileID, segs); err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{"out": out, "segments": len(segs)}).Info("rttm written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output RTTM path (default: <file-id>.rttm)")
	cmd.Flags().StringVar(&fileID, "file-id", "", "file id column (default: audio base name)")
	return cmd
}
