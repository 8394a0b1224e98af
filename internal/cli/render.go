package cli

import (
	"fmt"
	"io"
	"strconv"

	"medshelf/m/domain"
)

const cardDateLayout = "2006-01-02"

// renderCards writes one card per medicine, in the order given.
func renderCards(w io.Writer, meds []domain.Medicine) error {
	if len(meds) == 0 {
		_, err := fmt.Fprintln(w, "No medicines found.")
		return err
	}
	for i, med := range meds {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := renderCard(w, med); err != nil {
			return err
		}
	}
	return nil
}

func renderCard(w io.Writer, med domain.Medicine) error {
	added := ""
	if !med.CreatedAt.IsZero() {
		added = med.CreatedAt.UTC().Format(cardDateLayout)
	}
	company := med.CompanyName
	if company == "" {
		company = "N/A"
	}
	_, err := fmt.Fprintf(w,
		"#%d %s  (added %s)\n  Salt:    %s\n  Company: %s\n  Form:    %s\n  Qty:     %s\n  Price:   ₹%s\n",
		med.ID, med.BrandName, added,
		med.SaltName,
		company,
		med.DosageForm,
		med.QuantityText(),
		strconv.FormatFloat(med.Price, 'f', -1, 64),
	)
	return err
}
