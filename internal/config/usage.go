package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/agbru/matcalc/internal/ui"
)

// setCustomUsage installs a coloured usage function on fs.
func setCustomUsage(fs *flag.FlagSet) {
	fs.Usage = func() {
		// The theme is not initialised yet when flags fail to parse.
		t := ui.GetCurrentTheme()
		if _, ok := os.LookupEnv("NO_COLOR"); ok || ui.ColorsDisabled() {
			t = ui.NoColorTheme
		}
		out := fs.Output()

		fmt.Fprintf(out, "\n%sMatrix Calculator%s\n", t.Bold, t.Reset)
		fmt.Fprintf(out, "Parallel matrix multiplication benchmarks and graph solvers.\n\n")
		fmt.Fprintf(out, "%sUsage:%s\n  %s [flags] [<size> [repetitions]]\n\n%sFlags:%s\n",
			t.Warning, t.Reset, fs.Name(), t.Warning, t.Reset)

		fs.VisitAll(func(f *flag.Flag) {
			name, usage := flag.UnquoteUsage(f)
			sig := "-" + f.Name
			if name != "" {
				sig += " " + name
			}
			fmt.Fprintf(out, "  %s%-25s%s %s", t.Primary, sig, t.Reset, usage)
			if f.DefValue != "" && f.DefValue != "0" && f.DefValue != "false" {
				fmt.Fprintf(out, " %s(default %s)%s", t.Secondary, f.DefValue, t.Reset)
			}
			fmt.Fprintln(out)
		})
		fmt.Fprintf(out, "\nEvery flag can also be set with %s<FLAG> or in the -config YAML file.\n\n", EnvPrefix)
	}
}
