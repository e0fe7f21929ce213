package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/hfpolymers/rubber-ops/internal/modules/salary"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSalaryCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "salary",
		Short: "Salary records",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return requireToken(v)
		},
	}
	cmd.AddCommand(newSalaryGenerateCmd(v), newSalaryListCmd(v))
	return cmd
}

func newSalaryGenerateCmd(v *viper.Viper) *cobra.Command {
	var req salary.GenerateRequest
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate DRAFT salary records for one staff member or --all",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !req.All && req.StaffID == "" {
				return errors.New("pass --staff-id or --all")
			}
			res, err := apiClient(v).GenerateSalaries(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Message)
			for _, f := range res.Failures {
				fmt.Fprintf(out, "  %s: %s\n", f.StaffID, f.Error)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.StaffID, "staff-id", "", "staff id to generate for")
	f.BoolVar(&req.All, "all", false, "generate for every active staff member")
	f.IntVar(&req.Month, "month", 0, "month (1-12)")
	f.IntVar(&req.Year, "year", 0, "year")
	f.Float64Var(&req.Earnings.DailyWage, "daily-wage", 0, "wage per day")
	f.Float64Var(&req.Earnings.Days, "days", 0, "days worked")
	f.Float64Var(&req.Earnings.OTHours, "ot-hours", 0, "overtime hours")
	f.Float64Var(&req.Earnings.OTRate, "ot-rate", 0, "overtime rate per hour")
	f.Float64Var(&req.Earnings.Allowance, "allowance", 0, "allowance")
	f.Float64Var(&req.Deductions.PF, "pf", 0, "provident fund")
	f.Float64Var(&req.Deductions.ProfTax, "prof-tax", 0, "professional tax")
	f.Float64Var(&req.Deductions.IncomeTax, "income-tax", 0, "income tax")
	f.Float64Var(&req.Deductions.Other, "other", 0, "other deductions")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func newSalaryListCmd(v *viper.Viper) *cobra.Command {
	var f salary.Filter
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List salary records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.Status = salary.Status(strings.ToUpper(status))
			records, err := apiClient(v).ListSalaryRecords(cmd.Context(), f)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STAFF\tNAME\tPERIOD\tGROSS\tDEDUCTIONS\tNET\tSTATUS")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%02d/%d\t%.2f\t%.2f\t%.2f\t%s\n", r.StaffID, r.StaffName, r.Month, r.Year,
					r.GrossSalary, r.TotalDeductions, r.NetSalary, r.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&f.StaffID, "staff-id", "", "filter by staff id")
	cmd.Flags().IntVar(&f.Month, "month", 0, "filter by month")
	cmd.Flags().IntVar(&f.Year, "year", 0, "filter by year")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (DRAFT, APPROVED, PAID)")
	return cmd
}
