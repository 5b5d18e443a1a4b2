package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"netsecml/pkg/data"
	"netsecml/pkg/dataprep"
)

var prepareFlags struct {
	input       string
	output      string
	maxPerClass int
}

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Turn the raw threat-intel CSV into the labelled feature CSV",
	RunE:  runPrepare,
}

func init() {
	f := prepareCmd.Flags()
	f.StringVarP(&prepareFlags.input, "input", "i", "", "Raw CSV with text and entities columns (required)")
	f.StringVarP(&prepareFlags.output, "output", "o", "", "Feature CSV to write (required)")
	f.IntVar(&prepareFlags.maxPerClass, "max-per-class", 1000, "Rows kept per class, 0 for no cap")
	_ = prepareCmd.MarkFlagRequired("input")
	_ = prepareCmd.MarkFlagRequired("output")
}

func runPrepare(cmd *cobra.Command, _ []string) error {
	raw, err := data.ReadCSV(prepareFlags.input)
	if err != nil {
		return err
	}
	features, st, err := dataprep.Prepare(raw, prepareFlags.maxPerClass)
	if err != nil {
		return err
	}
	if err := features.WriteCSV(prepareFlags.output); err != nil {
		return err
	}
	logger.Info("Prepared feature table",
		zap.String("output", prepareFlags.output),
		zap.Int("malicious", st.Malicious),
		zap.Int("benign", st.Benign),
		zap.Int("skipped", st.Skipped))
	fmt.Fprintf(cmd.OutOrStdout(), "%d malicious, %d benign, %d skipped\n", st.Malicious, st.Benign, st.Skipped)
	return nil
}
