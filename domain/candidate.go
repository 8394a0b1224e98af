package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a candidate field that cannot be stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NumberText is raw numeric operator input. It decodes from both JSON
// strings and JSON numbers so form posts and API clients share one shape.
type NumberText string

func (n *NumberText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumberText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected number or string, got %s", data)
	}
	*n = NumberText(num.String())
	return nil
}

// Candidate is unvalidated input for a new medicine.
type Candidate struct {
	BrandName   string     `json:"brandName"`
	SaltName    string     `json:"saltName"`
	CompanyName string     `json:"companyName"`
	DosageForm  string     `json:"dosageForm"`
	Quantity    NumberText `json:"quantity"`
	Price       NumberText `json:"price"`
}

// decimalNumber is the plain notation operators type into a form. Go
// literal forms such as hex floats or digit separators are not accepted.
var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Validate trims the candidate and converts it into a NewMedicine.
// Tablet quantities must be whole numbers: "10.5" is rejected, not truncated.
func (c Candidate) Validate() (NewMedicine, error) {
	brand := strings.TrimSpace(c.BrandName)
	salt := strings.TrimSpace(c.SaltName)
	company := strings.TrimSpace(c.CompanyName)
	form := strings.TrimSpace(c.DosageForm)
	qtyStr := strings.TrimSpace(string(c.Quantity))
	priceStr := strings.TrimSpace(string(c.Price))

	required := []struct {
		field string
		value string
	}{
		{"brandName", brand},
		{"saltName", salt},
		{"companyName", company},
		{"dosageForm", form},
		{"price", priceStr},
	}
	for _, r := range required {
		if r.value == "" {
			return NewMedicine{}, &ValidationError{Field: r.field, Reason: "is required"}
		}
	}
	if qtyStr == "" {
		return NewMedicine{}, &ValidationError{Field: "quantity", Reason: "is required"}
	}

	price, err := parseFinite(priceStr)
	if err != nil {
		return NewMedicine{}, &ValidationError{Field: "price", Reason: "must be a number"}
	}

	var quantity float64
	if IsTablet(form) {
		n, err := strconv.ParseInt(qtyStr, 10, 64)
		if err != nil {
			return NewMedicine{}, &ValidationError{Field: "quantity", Reason: "must be a whole number of tablets"}
		}
		quantity = float64(n)
	} else {
		quantity, err = parseFinite(qtyStr)
		if err != nil {
			return NewMedicine{}, &ValidationError{Field: "quantity", Reason: "must be a valid number"}
		}
	}

	return NewMedicine{
		BrandName:   brand,
		SaltName:    salt,
		CompanyName: company,
		DosageForm:  form,
		Quantity:    quantity,
		Price:       price,
	}, nil
}

func parseFinite(raw string) (float64, error) {
	if !decimalNumber.MatchString(raw) {
		return 0, fmt.Errorf("not a decimal number %q", raw)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return v, nil
}
