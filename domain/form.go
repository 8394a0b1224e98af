package domain

import (
	"strconv"
	"strings"
)

// QuantityField is the view state of the quantity input, which depends on
// the selected dosage form.
type QuantityField struct {
	Visible     bool   `json:"visible"`
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Step        string `json:"step,omitempty"`
	// ClearValue tells the form to drop whatever was typed before the
	// dosage form was unset.
	ClearValue bool `json:"clearValue"`
}

// QuantityFieldFor returns the quantity input state for a dosage form.
func QuantityFieldFor(dosageForm string) QuantityField {
	dosageForm = strings.TrimSpace(dosageForm)
	switch {
	case dosageForm == "":
		return QuantityField{ClearValue: true}
	case IsTablet(dosageForm):
		return QuantityField{Visible: true, Label: "No. of tablets", Placeholder: "e.g., 10", Step: "1"}
	default:
		return QuantityField{Visible: true, Label: "Volume (ml)", Placeholder: "e.g., 5", Step: "any"}
	}
}

// QuantityText renders the quantity with its unit, e.g. "10 tablets" or "5.5 ml".
func (m Medicine) QuantityText() string {
	qty := strconv.FormatFloat(m.Quantity, 'f', -1, 64)
	if m.Unit == "" {
		return qty
	}
	return qty + " " + m.Unit
}
