package domain

import "time"

// DosageTablet is the only unit-counted dosage form. Every other form is
// measured by volume.
const DosageTablet = "tablet"

const (
	UnitTablets = "tablets"
	UnitML      = "ml"
)

// LiquidDosageForms lists the volume-measured forms offered to operators.
// Any other non-empty tag is accepted and treated the same way.
var LiquidDosageForms = []string{"syrup", "suspension", "drops", "injection"}

// Medicine is a stored medicine record.
type Medicine struct {
	ID          int64     `db:"id" json:"id" yaml:"id"`
	BrandName   string    `db:"brand_name" json:"brandName" yaml:"brandName"`
	SaltName    string    `db:"salt_name" json:"saltName" yaml:"saltName"`
	CompanyName string    `db:"company_name" json:"companyName" yaml:"companyName"`
	DosageForm  string    `db:"dosage_form" json:"dosageForm" yaml:"dosageForm"`
	Quantity    float64   `db:"quantity" json:"quantity" yaml:"quantity"`
	Unit        string    `db:"unit" json:"unit" yaml:"unit"`
	Price       float64   `db:"price" json:"price" yaml:"price"`
	CreatedAt   time.Time `db:"-" json:"createdAt" yaml:"createdAt"`
}

// NewMedicine holds the validated fields of a medicine that has not been
// stored yet. ID and CreatedAt are assigned on insert.
type NewMedicine struct {
	BrandName   string
	SaltName    string
	CompanyName string
	DosageForm  string
	Quantity    float64
	Price       float64
}

// Unit returns the unit derived from the dosage form.
func (n NewMedicine) Unit() string {
	return UnitFor(n.DosageForm)
}

// Stored builds the record persisted for n.
func (n NewMedicine) Stored(id int64, createdAt time.Time) Medicine {
	return Medicine{
		ID:          id,
		BrandName:   n.BrandName,
		SaltName:    n.SaltName,
		CompanyName: n.CompanyName,
		DosageForm:  n.DosageForm,
		Quantity:    n.Quantity,
		Unit:        n.Unit(),
		Price:       n.Price,
		CreatedAt:   createdAt,
	}
}

// IsTablet reports whether the dosage form is counted in tablets.
func IsTablet(dosageForm string) bool {
	return dosageForm == DosageTablet
}

// UnitFor maps a dosage form to its quantity unit.
func UnitFor(dosageForm string) string {
	if IsTablet(dosageForm) {
		return UnitTablets
	}
	return UnitML
}

// TimestampLayout is the sortable ISO-8601 form createdAt is stored in.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp. RFC 3339 values without
// milliseconds are accepted too.
func ParseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, raw)
	if err == nil {
		return t.UTC(), nil
	}
	t, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
