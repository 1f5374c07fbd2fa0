package process

import (
	"context"
	"math"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/series"
	"github.com/paveg/reprise/internal/validation"
)

const opMembers = "members"

// Age outlier bounds: ages at or past these are treated as bogus entries
const (
	bdUpperBound = 120
	bdLowerBound = 7
)

// Population statistics of the age column, used for the three-sigma rule
const (
	bdMean   = 28.99737187910644
	bdStddev = 9.538470787507382
)

// TransformMembers derives the member-level features: membership duration,
// registration and expiration calendar parts, the outlier-screened age
// column and the registration-channel flag. The raw registration date is
// superseded by its calendar parts and dropped.
func TransformMembers(ctx context.Context, table *frame.Frame) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validation.NewCompoundValidator(
		validation.NewNonEmptyValidator(table, opMembers),
		validation.NewColumnValidator(table, opMembers,
			"msno", "city", "bd", "gender", "registered_via",
			"registration_init_time", "expiration_date"),
	).Validate(); err != nil {
		return nil, err
	}

	mem := memory.NewGoAllocator()

	t, err := table.FillNull("gender", "nan")
	if err != nil {
		return nil, err
	}

	registered, regValid, err := columnDates(t, opMembers, "registration_init_time")
	if err != nil {
		return nil, err
	}
	expiration, expValid, err := columnDates(t, opMembers, "expiration_date")
	if err != nil {
		return nil, err
	}

	n := t.Len()
	membershipDays := make([]int64, n)
	regYear := make([]int64, n)
	regMonth := make([]int64, n)
	expYear := make([]int64, n)
	expMonth := make([]int64, n)
	bothValid := make([]bool, n)

	for i := 0; i < n; i++ {
		bothValid[i] = regValid[i] && expValid[i]
		if bothValid[i] {
			// date32 counts days, so the difference is already in days
			membershipDays[i] = int64(expiration[i]) - int64(registered[i])
		}
		if regValid[i] {
			reg := registered[i].ToTime()
			regYear[i] = int64(reg.Year())
			regMonth[i] = int64(reg.Month())
		}
		if expValid[i] {
			exp := expiration[i].ToTime()
			expYear[i] = int64(exp.Year())
			expMonth[i] = int64(exp.Month())
		}
	}

	t, err = withColumns(t,
		series.NewNullable("membership_days", membershipDays, bothValid, mem),
		series.NewNullable("registration_year", regYear, regValid, mem),
		series.NewNullable("registration_month", regMonth, regValid, mem),
		series.NewNullable("expiration_year", expYear, expValid, mem),
		series.NewNullable("expiration_month", expMonth, expValid, mem),
	)
	if err != nil {
		return nil, err
	}

	t = t.Drop("registration_init_time")

	ages, _, err := columnInts(t, opMembers, "bd")
	if err != nil {
		return nil, err
	}
	ageStrings := make([]string, n)
	for i, age := range ages {
		ageStrings[i] = screenAge(age)
	}
	t, err = t.WithColumn(series.New("bd", ageStrings, mem))
	if err != nil {
		return nil, err
	}

	vias, _, err := columnInts(t, opMembers, "registered_via")
	if err != nil {
		return nil, err
	}
	oneHotVia := make([]int64, n)
	for i, via := range vias {
		oneHotVia[i] = boolInt(via != 4)
	}
	t, err = t.WithColumn(series.New("1h_via", oneHotVia, mem))
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateNoNulls(t, opMembers); err != nil {
		return nil, err
	}
	return t, nil
}

// screenAge renders an age, masking hard-bound and three-sigma outliers
func screenAge(age int64) string {
	if age >= bdUpperBound || age <= bdLowerBound {
		return "nan"
	}
	if math.Abs(float64(age)-bdMean) > 3*bdStddev {
		return "nan"
	}
	return strconv.FormatInt(age, 10)
}
