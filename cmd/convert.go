package cmd

import (
	"github.com/spf13/cobra"

	"github.com/maastricht-university/edmo-der/rttm"
)

func newConvertCmd(a *app) *cobra.Command {
	var out, fileID string
	cmd := &cobra.Command{
		Use:   "convert RTTM",
		Short: "Normalize an RTTM file: drop unusable lines, sort by start, fix precision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := rttm.ParseFile(args[0])
			if err != nil {
				return err
			}
			if fileID == "" {
				fileID = doc.FileID
			}
			a.log.WithField("segments", len(doc.Segments)).Debug("parsed")
			if out == "" {
				return rttm.Write(cmd.OutOrStdout(), fileID, doc.Segments)
			}
			return rttm.WriteFile(out, fileID, doc.Segments)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (default: stdout)")
	cmd.Flags().StringVar(&fileID, "file-id", "", "override the file id column")
	return cmd
}
