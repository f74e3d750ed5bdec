package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yourflix/enrich/internal/enrich"
)

// writeReportFile serializes the run report as YAML for operator tooling.
func writeReportFile(path string, report *enrich.RunReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// printOutcome dumps the fields a lookup resolved, as YAML on stdout.
func printOutcome(outcome enrich.Outcome) error {
	fields := outcome.Fields()
	if len(fields) == 0 {
		fmt.Println("(no fields resolved)")
		return nil
	}
	data, err := yaml.Marshal(fields)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
