package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/copyleftdev/cnvsim/internal/experiment"
)

// WriteSummary prints one fixation probability line per scenario followed
// by a table of counts, interval and Kimura expectation.
func WriteSummary(w io.Writer, result *experiment.Result) error {
	for _, sc := range result.Scenarios {
		if _, err := fmt.Fprintf(w, "Fixation Probability (%s): %.3f\n", sc.Name, sc.FixationProbability); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tN\tS\tTRIALS\tFIXED\tLOST\tSEGREGATING\tP(FIX)\tCI\tEXPECTED\tMEAN T(FIX)")
	for _, sc := range result.Scenarios {
		fmt.Fprintf(tw, "%s\t%d\t%g\t%d\t%d\t%d\t%d\t%.3f\t[%.3f, %.3f]\t%.4f\t%.1f\n",
			sc.Name,
			sc.Parameters.PopulationSize,
			sc.Parameters.SelectionCoefficient,
			sc.Trials,
			sc.Fixed,
			sc.Lost,
			sc.Segregating,
			sc.FixationProbability,
			sc.CILow, sc.CIHigh,
			sc.Expected,
			sc.MeanFixationTime,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nseed=%d workers=%d confidence=%.2f elapsed=%s\n",
		result.Seed, result.Workers, result.Confidence, result.Duration)
	return err
}
