// Command naacc-etl prepares inputs for a capacity run and checks source
// data quality without running the full analysis.
//
// Usage:
//
//	go run ./cmd/naacc-etl \
//	  -precip-csv noaa_atlas14.csv -out precip.json -aoi "Trout Brook HUC12"
//
//	go run ./cmd/naacc-etl -validate naacc_export.csv
//
// The first form converts a NOAA Atlas 14 precipitation-frequency CSV into
// the JSON series file the analysis consumes. The second normalizes every
// record in a NAACC export and prints a per-code validation summary so bad
// field data can be fixed at the source before a run.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/civicmapper/culvert-toolkit/internal/config"
	"github.com/civicmapper/culvert-toolkit/internal/naacc"
	"github.com/civicmapper/culvert-toolkit/internal/table"
)

func main() {
	precipCSV := flag.String("precip-csv", "", "path to a NOAA Atlas 14 precipitation-frequency CSV")
	out := flag.String("out", "precip.json", "output path for the converted precipitation series")
	aoi := flag.String("aoi", "", "label for the area of interest the series covers")
	adjust := flag.Float64("adjust", 1.0, "rainfall adjustment factor applied to every depth")
	validate := flag.String("validate", "", "path to a NAACC culvert export CSV to validate")
	flag.Parse()

	switch {
	case *precipCSV != "":
		if err := convertPrecip(*precipCSV, *out, *aoi, *adjust); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			os.Exit(1)
		}
	case *validate != "":
		if code := validateCulverts(*validate); code != 0 {
			os.Exit(code)
		}
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func convertPrecip(csvPath, outPath, areaOfInterest string, adjustment float64) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open precipitation CSV: %w", err)
	}
	defer f.Close()

	depths, err := config.ParseNOAAPrecipCSV(f, adjustment)
	if err != nil {
		return fmt.Errorf("parse precipitation CSV: %w", err)
	}
	if err := config.WritePrecipitationFile(outPath, areaOfInterest, depths); err != nil {
		return err
	}

	periods := config.ReturnPeriodsAscending(depths)
	fmt.Printf("wrote %s (%d return periods)\n", outPath, len(periods))
	for _, rp := range periods {
		fmt.Printf("  %4d-yr  %6.2f cm\n", rp, depths[rp])
	}
	return nil
}

func validateCulverts(path string) int {
	input, err := table.ReadCulvertsFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read culvert table: %v\n", err)
		return 1
	}

	culverts := naacc.NormalizeAll(input.Records)

	fmt.Println("=== NAACC Export Validation ===")
	fmt.Println()
	fmt.Printf("records: %d\n", len(culverts))

	var included, excluded, failed int
	byCode := map[string]int{}
	for _, c := range culverts {
		switch {
		case len(c.ValidationErrors) > 0:
			failed++
			for _, ve := range c.ValidationErrors {
				code, _, _ := strings.Cut(ve, ":")
				byCode[code]++
			}
		case c.Include:
			included++
		default:
			excluded++
		}
	}
	fmt.Printf("included: %d\n", included)
	fmt.Printf("excluded (non-culvert crossing type): %d\n", excluded)
	fmt.Printf("failed validation: %d\n", failed)

	if failed > 0 {
		fmt.Println()
		fmt.Println("failures by code:")
		codes := make([]string, 0, len(byCode))
		for code := range byCode {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Printf("  %-24s %d\n", code, byCode[code])
		}

		fmt.Println()
		fmt.Println("first 20 failing records:")
		shown := 0
		for _, c := range culverts {
			if len(c.ValidationErrors) == 0 {
				continue
			}
			fmt.Printf("  %s: %s\n", c.RecordKey(), strings.Join(c.ValidationErrors, "; "))
			shown++
			if shown == 20 {
				break
			}
		}
		return 1
	}

	fmt.Println()
	fmt.Println("OK: every record normalized cleanly")
	return 0
}
