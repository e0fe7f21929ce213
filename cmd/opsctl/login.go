package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newLoginCmd(v *viper.Viper) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the token to the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}
			res, err := apiClient(v).Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			v.Set(keyToken, res.Token)
			if path := v.ConfigFileUsed(); path != "" {
				if err := v.WriteConfigAs(path); err != nil {
					return fmt.Errorf("save token: %w", err)
				}
			}
			if res.User != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", res.User.Email, res.User.Role)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newWhoamiCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireToken(v); err != nil {
				return err
			}
			u, err := apiClient(v).Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s status=%s", u.Name, u.Email, u.Role, u.Status)
			if u.StaffID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " staff_id=%s", u.StaffID)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}
