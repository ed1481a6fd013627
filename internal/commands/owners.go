package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinicbooks/clinicbooks/internal/consolidate"
	"github.com/clinicbooks/clinicbooks/internal/model"
)

func newOwnersCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owners",
		Short: "Manage practitioners",
	}
	cmd.AddCommand(newOwnersAddCommand(opts), newOwnersListCommand(opts))
	return cmd
}

func newOwnersAddCommand(opts *rootOptions) *cobra.Command {
	var (
		owner         model.Owner
		personType    string
		activityStart string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				o := owner
				o.Name = strings.TrimSpace(o.Name)
				if o.Name == "" {
					return &model.ValidationError{Field: "name", Reason: "required"}
				}
				pt, err := model.ParsePersonType(personType)
				if err != nil {
					return err
				}
				o.PersonType = pt
				if o.ClinicID == "" {
					o.ClinicID = a.cfg.Practice.ClinicID
				}
				if activityStart != "" {
					d, err := model.ParseDate(activityStart)
					if err != nil {
						return err
					}
					o.ActivityStart = d
				}
				o.Active = true

				if err := a.store.CreateOwner(ctx, &o); err != nil {
					return fmt.Errorf("creating owner: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created owner %s\n", o.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&owner.Name, "name", "", "owner name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&owner.Email, "email", "", "contact email")
	cmd.Flags().StringVar(&personType, "person-type", string(model.PersonPF), "PF, PJ or HIBRIDO")
	cmd.Flags().StringVar(&owner.ClinicID, "clinic-id", "", "clinic id (defaults to practice.clinic_id)")
	cmd.Flags().StringVar(&owner.ClinicName, "clinic-name", "", "clinic display name")
	cmd.Flags().StringVar(&activityStart, "activity-start", "", "date invoicing started, YYYY-MM-DD")

	return cmd
}

func newOwnersListCommand(opts *rootOptions) *cobra.Command {
	var q consolidate.OwnerQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List owners with lifetime totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				page, err := a.consolidator.ListOwners(ctx, q)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCLINIC\tSINCE\tREVENUE\tEXPENSES")
				for _, s := range page.Items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						s.Owner.ID, s.Owner.Name, s.Owner.PersonType, s.Owner.ClinicID,
						s.Owner.CreatedAt.Format(time.DateOnly),
						model.FormatMoney(s.TotalRevenue), model.FormatMoney(s.TotalExpenses))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d owners)\n", page.Page, page.TotalPages, page.TotalItems)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&q.Search, "search", "", "match name, email or clinic")
	cmd.Flags().StringVar(&q.SortField, "sort", consolidate.SortCreatedAt, "createdAt, name or email")
	cmd.Flags().StringVar(&q.SortOrder, "order", consolidate.OrderDesc, "ASC or DESC")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PageSize, "page-size", 0, "owners per page (defaults to admin.page_size)")

	return cmd
}
