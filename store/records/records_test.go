package records_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/records"
)

func TestPolicyColumns(t *testing.T) {
	p := &leave.Policy{
		WeekOff:  []time.Weekday{time.Sunday, time.Saturday},
		Holidays: []leave.Holiday{{Date: generic.NewDate(2024, time.December, 25), Name: "Christmas"}},
		LeaveTypes: []leave.LeaveType{{
			ID: "lt-1", Name: "Casual Leave", ShortCode: "CL",
			MaxPerRequest:        decimal.RequireFromString("2.5"),
			MaxInstancesPerMonth: decimal.NewFromInt(4),
			RequiresApproval:     true,
			IsActive:             true,
		}},
	}

	cols, err := records.EncodePolicy(p)
	require.NoError(t, err)
	assert.JSONEq(t, `[0,6]`, string(cols.WeekOff))
	assert.JSONEq(t, `[{"date":"2024-12-25","name":"Christmas"}]`, string(cols.Holidays))
	assert.Contains(t, string(cols.LeaveTypes), `"shortCode":"CL"`)

	var got leave.Policy
	require.NoError(t, records.DecodePolicy(&got, cols))
	assert.Equal(t, p.WeekOff, got.WeekOff)
	assert.Equal(t, p.Holidays, got.Holidays)
	require.Len(t, got.LeaveTypes, 1)
	assert.True(t, decimal.RequireFromString("2.5").Equal(got.LeaveTypes[0].MaxPerRequest))
	assert.True(t, got.LeaveTypes[0].RequiresApproval)
	assert.True(t, got.LeaveTypes[0].MinPerRequest.IsZero())
}

func TestDecodePolicy_Invalid(t *testing.T) {
	var p leave.Policy
	err := records.DecodePolicy(&p, records.PolicyColumns{
		WeekOff:    []byte(`[0]`),
		Holidays:   []byte(`{"not":"a list"}`),
		LeaveTypes: []byte(`[]`),
	})
	assert.ErrorContains(t, err, "decode holidays")
}

func TestDocuments(t *testing.T) {
	data, err := records.EncodeDocuments(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	docs, err := records.DecodeDocuments(data)
	require.NoError(t, err)
	assert.Nil(t, docs)

	docs, err = records.DecodeDocuments(nil)
	require.NoError(t, err)
	assert.Nil(t, docs)

	in := []leave.Document{{Name: "note.pdf", URL: "https://files.test/note.pdf"}}
	data, err = records.EncodeDocuments(in)
	require.NoError(t, err)
	docs, err = records.DecodeDocuments(data)
	require.NoError(t, err)
	assert.Equal(t, in, docs)

	_, err = records.DecodeDocuments([]byte("{"))
	assert.ErrorContains(t, err, "decode documents")
}
