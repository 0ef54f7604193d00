// regionctl inspects the City to Taluka table and dry-runs assignment
// validation without a database.
//
//	regionctl cities
//	regionctl talukas <city>
//	regionctl city-of <taluka>
//	regionctl check-cities --cities a,b
//	regionctl check-hr --cities a,b --talukas x,y
//	regionctl check-field --hr-talukas x,y --talukas z
//	regionctl dump
//
// --file loads an alternate table in the embedded YAML format. --json
// switches output to JSON.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/nikhilbhutani/washgeo/internal/rbac"
	"github.com/nikhilbhutani/washgeo/internal/region"
)

// exitError carries a non-zero exit status without an error message, used
// when a check ran cleanly but found invalid regions.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitError) ExitCode() int { return int(e) }

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var (
		file      string
		asJSON    bool
		cities    []string
		talukas   []string
		hrTalukas []string
	)

	flagSet := pflag.NewFlagSet("regionctl", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&file, "file", "", "region table YAML (default: built-in table)")
	flagSet.BoolVar(&asJSON, "json", false, "print JSON")
	flagSet.StringSliceVar(&cities, "cities", nil, "cities held or assigned (comma separated)")
	flagSet.StringSliceVar(&talukas, "talukas", nil, "talukas to assign (comma separated)")
	flagSet.StringSliceVar(&hrTalukas, "hr-talukas", nil, "talukas held by the assigning hr-general")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	table, err := loadTable(file)
	if err != nil {
		return err
	}
	v := rbac.NewValidator(table)
	p := printer{out: out, json: asJSON}

	rest := flagSet.Args()
	if len(rest) == 0 {
		return errors.New("missing command (cities, talukas, city-of, check-cities, check-hr, check-field, dump)")
	}

	switch cmd, operands := rest[0], rest[1:]; cmd {
	case "cities":
		return p.list(table.Cities())

	case "talukas":
		city, err := oneOperand(cmd, operands)
		if err != nil {
			return err
		}
		if !table.HasCity(city) {
			return fmt.Errorf("unknown city %q", city)
		}
		return p.list(table.TalukasOf(city))

	case "city-of":
		taluka, err := oneOperand(cmd, operands)
		if err != nil {
			return err
		}
		city, ok := table.CityOfTaluka(taluka)
		if !ok {
			return fmt.Errorf("unknown taluka %q", taluka)
		}
		return p.list([]string{city})

	case "check-cities":
		res := v.ValidateGeneralAssignment(cities)
		return p.result(res, res.Valid, res.Err())

	case "check-hr":
		res := v.ValidateSubGeneralToHRAssignment(cities, talukas)
		return p.result(res, res.Valid, res.Err(rbac.RuleSubGeneralTaluka))

	case "check-field":
		res := v.ValidateHRToFieldAssignments(hrTalukas, talukas)
		return p.result(res, res.Valid, res.Err(rbac.RuleHRFieldTaluka))

	case "dump":
		if asJSON {
			return p.jsonValue(table.Snapshot())
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]interface{}{"cities": table.Snapshot()}); err != nil {
			return fmt.Errorf("encode table: %w", err)
		}
		return enc.Close()

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func loadTable(file string) (*region.Table, error) {
	if file == "" {
		return region.Default(), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read region table: %w", err)
	}
	return region.Parse(data)
}

func oneOperand(cmd string, operands []string) (string, error) {
	if len(operands) != 1 {
		return "", fmt.Errorf("%s takes exactly one argument", cmd)
	}
	return operands[0], nil
}

type printer struct {
	out  io.Writer
	json bool
}

func (p printer) list(items []string) error {
	if p.json {
		return p.jsonValue(items)
	}
	for _, s := range items {
		fmt.Fprintln(p.out, s)
	}
	return nil
}

func (p printer) result(res interface{}, valid bool, verr error) error {
	if p.json {
		if err := p.jsonValue(res); err != nil {
			return err
		}
	} else if valid {
		fmt.Fprintln(p.out, "ok")
	} else {
		fmt.Fprintln(p.out, "invalid: "+strings.TrimSpace(verr.Error()))
	}
	if !valid {
		return exitError(2)
	}
	return nil
}

func (p printer) jsonValue(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
