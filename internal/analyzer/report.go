package analyzer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// WriteText выводит отчёт таблицей
func (r Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Строк в логе: %d, использовано: %d\n\n", r.TotalRows, r.UsedRows)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "phase\tcount\tmean\tmedian\tp25\tp75\tstdev\t")
	for _, s := range r.Phases {
		fmt.Fprintf(tw, "%d\t%d\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t\n",
			s.Phase, s.Count, s.Mean, s.Median, s.P25, s.P75, s.StdDev)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.RecommendedOffsetMs == nil {
		_, err := fmt.Fprintf(w, "\nДля фазы %d нет замеров, сдвиг не рассчитан\n", r.TargetPhase)
		return err
	}
	_, err := fmt.Fprintf(w, "\nРекомендуемый сдвиг для фазы %d: %.0f мс (медиана - %.0f мс)\n",
		r.TargetPhase, *r.RecommendedOffsetMs, r.MarginMs)
	return err
}

// WriteYAML выводит отчёт в YAML
func (r Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("ошибка кодирования отчёта: %w", err)
	}
	return enc.Close()
}
