package main

import (
	"context"
	"flag"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/okian/buffcal/internal/parsecheck"
	"github.com/okian/buffcal/pkg/logger"
)

func main() {
	var (
		tz      = flag.String("tz", "Europe/Stockholm", "Server timezone")
		now     = flag.String("now", "", "Reference time for \"today\", RFC3339 (default: current time)")
		sep     = flag.String("sep", parsecheck.DefaultSeparator, "Message separator line")
		pretty  = flag.Bool("pretty", false, "Indent the JSON output")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		parsecheck.ShowHelp(os.Stdout)
		return
	}

	// Logs go to stderr so stdout stays valid JSON.
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	config := &parsecheck.Config{
		Input:     flag.Arg(0),
		Timezone:  *tz,
		Separator: *sep,
		Pretty:    *pretty,
		Verbose:   *verbose,
	}
	if *now != "" {
		t, err := time.Parse(time.RFC3339, *now)
		if err != nil {
			os.Stderr.WriteString("invalid -now: " + err.Error() + "\n")
			os.Exit(2)
		}
		config.Now = t
	}

	if _, err := parsecheck.Run(context.Background(), config, os.Stdin, os.Stdout); err != nil {
		os.Stderr.WriteString("parse check failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
