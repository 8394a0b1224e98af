package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"medshelf/m/domain"
)

func newAddCommand(deps commandDeps) *cobra.Command {
	var (
		c        domain.Candidate
		quantity string
		price    string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a medicine",
		Example: "  medshelf add --brand Crocin --salt Paracetamol --company GSK --form tablet --quantity 10 --price 25\n" +
			"  medshelf add --brand Benadryl --salt Diphenhydramine --company J&J --form syrup --quantity 100.5 --price 89.5",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("add does not accept positional arguments")
			}
			c.Quantity = domain.NumberText(quantity)
			c.Price = domain.NumberText(price)
			return withSession(cmd.Context(), deps, func(ctx context.Context, s *session) error {
				med, err := s.repo.Add(ctx, c)
				if err != nil {
					return err
				}
				if deps.globals.JSON() {
					return printJSON(deps.out, med)
				}
				if _, err := fmt.Fprintln(deps.out, "Medicine added."); err != nil {
					return err
				}
				return renderCard(deps.out, med)
			})
		},
	}
	cmd.Flags().StringVar(&c.BrandName, "brand", "", "Brand name")
	cmd.Flags().StringVar(&c.SaltName, "salt", "", "Salt (generic) name")
	cmd.Flags().StringVar(&c.CompanyName, "company", "", "Manufacturer")
	cmd.Flags().StringVar(&c.DosageForm, "form", "", "Dosage form: tablet, syrup, suspension, drops, injection")
	cmd.Flags().StringVar(&quantity, "quantity", "", "Number of tablets, or volume in ml")
	cmd.Flags().StringVar(&price, "price", "", "Price")
	return cmd
}

func newListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List medicines, optionally filtered by brand, salt or dosage form",
		Example: "  medshelf list\n" +
			"  medshelf list paracetamol\n" +
			"  medshelf --format json list syrup",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withSession(cmd.Context(), deps, func(ctx context.Context, s *session) error {
				meds, err := s.repo.List(ctx, query)
				if err != nil {
					return err
				}
				if deps.globals.JSON() {
					return printJSON(deps.out, meds)
				}
				return renderCards(deps.out, meds)
			})
		},
	}
}

func newDeleteCommand(deps commandDeps) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a medicine",
		Example: "  medshelf delete 2\n" +
			"  medshelf delete --yes 2",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("delete requires exactly one medicine id")
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return usageErrorf("invalid medicine id %q", args[0])
			}
			if !yes {
				ok, err := confirm(deps, "Are you sure you want to delete this medicine?")
				if err != nil {
					return mapCommandError(err)
				}
				if !ok {
					_, err := fmt.Fprintln(deps.out, "Cancelled.")
					return err
				}
			}
			return withSession(cmd.Context(), deps, func(ctx context.Context, s *session) error {
				removed, err := s.repo.Delete(ctx, id)
				if err != nil {
					return err
				}
				if deps.globals.JSON() {
					return printJSON(deps.out, map[string]any{"id": id, "deleted": removed})
				}
				if removed {
					_, err = fmt.Fprintf(deps.out, "Medicine #%d deleted.\n", id)
				} else {
					_, err = fmt.Fprintf(deps.out, "No medicine #%d; nothing deleted.\n", id)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking for confirmation")
	return cmd
}

// confirm asks a yes/no question on the command's input.
func confirm(deps commandDeps, question string) (bool, error) {
	if _, err := fmt.Fprintf(deps.out, "%s [y/N] ", question); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(deps.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
