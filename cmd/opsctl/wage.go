package main

import (
	"fmt"
	"io"

	"github.com/hfpolymers/rubber-ops/internal/modules/salary"
	"github.com/spf13/cobra"
)

func newWageCmd() *cobra.Command {
	wage := &cobra.Command{Use: "wage", Short: "Wage calculations"}

	var e salary.Earnings
	var d salary.Deductions
	calc := &cobra.Command{
		Use:   "calc",
		Short: "Compute gross, deductions and net pay locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			printBreakdown(cmd.OutOrStdout(), salary.Compute(e, d))
			return nil
		},
	}
	f := calc.Flags()
	f.Float64Var(&e.DailyWage, "daily-wage", 0, "wage per day")
	f.Float64Var(&e.Days, "days", 0, "days worked")
	f.Float64Var(&e.OTHours, "ot-hours", 0, "overtime hours")
	f.Float64Var(&e.OTRate, "ot-rate", 0, "overtime rate per hour")
	f.Float64Var(&e.Allowance, "allowance", 0, "allowance")
	f.Float64Var(&d.PF, "pf", 0, "provident fund")
	f.Float64Var(&d.ProfTax, "prof-tax", 0, "professional tax")
	f.Float64Var(&d.IncomeTax, "income-tax", 0, "income tax")
	f.Float64Var(&d.Other, "other", 0, "other deductions")

	wage.AddCommand(calc)
	return wage
}

func printBreakdown(w io.Writer, b salary.Breakdown) {
	fmt.Fprintf(w, "Gross salary:      %.2f\n", b.GrossSalary)
	fmt.Fprintf(w, "Total deductions:  %.2f\n", b.TotalDeductions)
	fmt.Fprintf(w, "Net salary:        %.2f\n", b.NetSalary)
}
