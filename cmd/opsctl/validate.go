package main

import (
	"fmt"
	"time"

	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/validation"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "validate", Short: "Check values against the server's validation rules"}
	cmd.AddCommand(newValidateStaffIDCmd(), newValidatePhoneCmd(), newValidateLeaveCmd())
	return cmd
}

func newValidateStaffIDCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "staff-id <id>",
		Short: "Validate a staff id for a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := identity.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			id, err := validation.ValidateStaffID(r, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "field_staff", "role the id belongs to")
	return cmd
}

func newValidatePhoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phone <number>",
		Short: "Validate and normalise a phone number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phone, err := validation.NormalizePhone(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %s\n", phone)
			return nil
		},
	}
}

func newValidateLeaveCmd() *cobra.Command {
	var today string
	cmd := &cobra.Command{
		Use:   "leave <start> <end>",
		Short: "Validate a leave date range (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := validation.ParseDate(args[0])
			if err != nil {
				return err
			}
			end, err := validation.ParseDate(args[1])
			if err != nil {
				return err
			}
			now := time.Now()
			if today != "" {
				if now, err = validation.ParseDate(today); err != nil {
					return err
				}
			}
			if err := validation.ValidateDateRange(start, end, now); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %d day(s)\n", int(end.Sub(start).Hours()/24)+1)
			return nil
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "override today's date (YYYY-MM-DD)")
	return cmd
}
