// Command matcalc benchmarks square matrix multiplication strategies and
// runs the matrix-based graph and linear solvers built on them.
//
//	matcalc -n 512 -reps 3
//	matcalc -mode sweep -sizes 128,256,512 -plot sweep.png
//	matcalc -mode pagerank -n 50 -damping 0.85
//	matcalc -server -port 8080
package main

import (
	"context"
	"os"

	"github.com/agbru/matcalc/internal/app"
	apperrors "github.com/agbru/matcalc/internal/errors"
)

func main() {
	if app.HasVersionFlag(os.Args[1:]) {
		app.PrintVersion(os.Stdout)
		os.Exit(apperrors.ExitSuccess)
	}

	application, err := app.New(os.Args, os.Stderr)
	if err != nil {
		if app.IsHelpError(err) {
			os.Exit(apperrors.ExitSuccess)
		}
		os.Exit(apperrors.ExitErrorConfig)
	}
	os.Exit(application.Run(context.Background(), os.Stdout))
}
