package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/peers"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func testInsights() *Insights {
	roster := []domain.RosterEntry{
		{CCN: "105001", Name: "NAPLES CARE", State: "FL", Attributes: domain.Attributes{County: "Collier"}},
		{CCN: "105002", Name: "GULF SHORE", State: "FL", Attributes: domain.Attributes{County: "Collier County"}},
		{CCN: "105003", Name: "BAYFRONT", State: "FL", Attributes: domain.Attributes{County: "Lee"}},
	}
	facilities := []domain.Facility{
		{Name: "Naples Care", State: "FL", CCN: "105001"},
		{Name: "Naples Care", State: "FL", CCN: "105001"},
		{Name: "Bayfront", State: "FL", CCN: "105003"},
		{Name: "Gulf Shore", State: "FL", CCN: "105002"},
		{Name: "Atlanta Home", State: "GA", CCN: "115001"},
		{Name: "Unmatched", State: "FL"},
	}
	events := []domain.SurveyEvent{
		{CCN: "105001", Date: day("2023-01-02"), Category: "Infection Control"},
		{CCN: "105001", Date: day("2023-01-02"), Category: "Infection Control"},
		{CCN: "105001", Date: day("2023-01-02"), Category: "Nutrition"},
		{CCN: "105002", Date: day("2022-03-07"), Category: "Nutrition"},
		{CCN: "105002", Date: day("2023-01-09"), Category: "Resident Rights"},
		{CCN: "105003", Date: day("2021-01-11"), Category: "Environmental"},
		{CCN: "105003", Category: "Pharmacy"},
		{CCN: "115001", Date: day("2023-01-02"), Category: "Infection Control"},
	}
	ds := domain.NewDataset(facilities, roster, events)
	return New(ds, peers.NewGrouper(ds))
}

func TestStateDeficiencyTrends(t *testing.T) {
	got, err := testInsights().StateDeficiencyTrends("FL")
	require.NoError(t, err)

	assert.Equal(t, []CategoryCount{
		{Category: "Infection Control", Count: 2},
		{Category: "Nutrition", Count: 2},
		{Category: "Environmental", Count: 1},
		{Category: "Pharmacy", Count: 1},
		{Category: "Resident Rights", Count: 1},
	}, got.Categories, "duplicates count, ties break alphabetically, other states excluded")
	assert.Equal(t,
		"In state FL, the most frequent deficiency categories are: Infection Control (2), Nutrition (2), Environmental (1), Pharmacy (1), Resident Rights (1).",
		got.Summary)
}

func TestStateDeficiencyTrends_TopFive(t *testing.T) {
	var events []domain.SurveyEvent
	for i, c := range []string{"A", "B", "C", "D", "E", "F"} {
		for n := 0; n <= i; n++ {
			events = append(events, domain.SurveyEvent{CCN: "105001", Category: c})
		}
	}
	ds := domain.NewDataset([]domain.Facility{{Name: "X", State: "FL", CCN: "105001"}}, nil, events)

	got, err := New(ds, peers.NewGrouper(ds)).StateDeficiencyTrends("FL")
	require.NoError(t, err)

	assert.Len(t, got.Categories, 6)
	assert.Equal(t, "In state FL, the most frequent deficiency categories are: F (6), E (5), D (4), C (3), B (2).", got.Summary)
}

func TestStateDeficiencyTrends_Empty(t *testing.T) {
	got, err := testInsights().StateDeficiencyTrends("TX")
	require.NoError(t, err)

	assert.Empty(t, got.Categories)
	assert.Empty(t, got.Summary)
}

func TestCountyDeficiencyTrends(t *testing.T) {
	got, err := testInsights().CountyDeficiencyTrends("FL", "collier")
	require.NoError(t, err)

	assert.Equal(t, []CategoryCount{
		{Category: "Infection Control", Count: 2},
		{Category: "Nutrition", Count: 2},
		{Category: "Resident Rights", Count: 1},
	}, got.Categories)
	assert.Equal(t,
		"In collier county, FL, the most frequent deficiency categories are: Infection Control (2), Nutrition (2), Resident Rights (1).",
		got.Summary)
}

func TestTrends_MissingDeficiencies(t *testing.T) {
	ds := domain.NewDataset(nil, nil, nil)
	ds.Absent = []string{domain.TableDeficiencies}
	in := New(ds, peers.NewGrouper(ds))

	_, err := in.StateDeficiencyTrends("FL")
	assert.True(t, domain.IsMissingData(err))

	_, err = in.MonthlySurveyCounts("FL", "")
	assert.True(t, domain.IsMissingData(err))
}

func TestCountyDeficiencyTrends_MissingRoster(t *testing.T) {
	ds := domain.NewDataset(nil, nil, nil)
	ds.Absent = []string{domain.TableRoster}

	_, err := New(ds, peers.NewGrouper(ds)).CountyDeficiencyTrends("FL", "Collier")

	var mde *domain.MissingDataError
	require.ErrorAs(t, err, &mde)
	assert.Equal(t, domain.TableRoster, mde.Table)
}

func TestMonthlySurveyCounts(t *testing.T) {
	in := testInsights()

	got, err := in.MonthlySurveyCounts("FL", "")
	require.NoError(t, err)

	require.Len(t, got.Buckets, 12)
	assert.Equal(t, MonthBucket{Month: 1, Label: "Jan", Count: 3}, got.Buckets[0], "same-day citations count once")
	assert.Equal(t, MonthBucket{Month: 3, Label: "Mar", Count: 1}, got.Buckets[2])
	assert.Equal(t, 4, got.Count)

	got, err = in.MonthlySurveyCounts("FL", "Lee County")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, 1, got.Buckets[0].Count)
}

func TestSurveyDates(t *testing.T) {
	in := testInsights()

	assert.Equal(t, []string{"2022-03-07", "2023-01-09"}, in.SurveyDates("105002"))
	assert.Equal(t, []string{}, in.SurveyDates("999999"))
}

func TestPeerSurveyDates(t *testing.T) {
	got := testInsights().PeerSurveyDates("105001", "", peers.ModeCounty)

	assert.Equal(t, []PeerDates{
		{CCN: "105001", Name: "NAPLES CARE", Dates: []string{"2023-01-02"}},
		{CCN: "105002", Name: "GULF SHORE", Dates: []string{"2022-03-07", "2023-01-09"}},
	}, got)
}

func TestFacilitiesByState(t *testing.T) {
	got := testInsights().FacilitiesByState("Florida")

	require.Len(t, got, 4)
	names := make([]string, 0, len(got))
	for _, f := range got {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Bayfront", "Gulf Shore", "Naples Care", "Unmatched"}, names)
	assert.Equal(t, 2, got[1].Surveys)
	assert.Equal(t, "2023-01-09", got[1].LastSurvey)
	assert.Zero(t, got[3].Surveys)
}
