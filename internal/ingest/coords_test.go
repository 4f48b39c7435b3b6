package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
)

func TestApplyCoordinates_AppendsColumns(t *testing.T) {
	src, err := ReadCSV(strings.NewReader(
		"CMS Certification Number (CCN),Provider Name,State,Provider Address\n"+
			"105001,SUNRISE MANOR,FL,1 MAIN ST\n"+
			"105002,BAYVIEW,FL,2 BAY RD\n"), "roster.csv")
	require.NoError(t, err)

	roster := []domain.RosterEntry{
		{CCN: "105001", Attributes: domain.Attributes{Geo: &domain.Geo{Lat: 26.142, Lon: -81.7948}}},
		{CCN: "105002"},
	}

	out, updated, err := ApplyCoordinates(src, roster)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, []string{"CMS Certification Number (CCN)", "Provider Name", "State", "Provider Address", "Latitude", "Longitude"}, out.Header)
	assert.Equal(t, []string{"105001", "SUNRISE MANOR", "FL", "1 MAIN ST", "26.142000", "-81.794800"}, out.Rows[0])
	assert.Equal(t, []string{"105002", "BAYVIEW", "FL", "2 BAY RD", "", ""}, out.Rows[1])
	assert.Len(t, src.Header, 4, "input table is not modified")
}

func TestApplyCoordinates_KeepsExistingValues(t *testing.T) {
	src, err := ReadCSV(strings.NewReader(
		"CCN,Provider Name,State,Latitude,Longitude\n"+
			"105001,SUNRISE MANOR,FL,26.1,-81.7\n"+
			"105002,BAYVIEW,FL,NaN,\n"), "roster.csv")
	require.NoError(t, err)

	geo := &domain.Geo{Lat: 30, Lon: -80}
	out, updated, err := ApplyCoordinates(src, []domain.RosterEntry{
		{CCN: "105001", Attributes: domain.Attributes{Geo: geo}},
		{CCN: "105002", Attributes: domain.Attributes{Geo: geo}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Len(t, out.Header, 5)
	assert.Equal(t, []string{"105001", "SUNRISE MANOR", "FL", "26.1", "-81.7"}, out.Rows[0])
	assert.Equal(t, []string{"105002", "BAYVIEW", "FL", "30.000000", "-80.000000"}, out.Rows[1])
}

func TestApplyCoordinates_MissingCCNColumn(t *testing.T) {
	src, err := ReadCSV(strings.NewReader("Provider Name,State\nSUNRISE MANOR,FL\n"), "roster.csv")
	require.NoError(t, err)

	_, _, err = ApplyCoordinates(src, nil)
	require.Error(t, err)
	assert.True(t, domain.IsMissingData(err))
}

func TestTable_WriteCSV(t *testing.T) {
	tbl := &Table{Header: []string{"CCN", "Provider Name"}, Rows: [][]string{{"105001", "SUNRISE MANOR, INC"}}}

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	assert.Equal(t, "CCN,Provider Name\n105001,\"SUNRISE MANOR, INC\"\n", buf.String())
}
