// Package records holds the JSON column encodings shared by the SQL stores.
//
// Policies keep their catalogue, week off and holidays as JSON documents
// next to the relational columns; requests keep their documents the same way.
// Breakup entries are rows of their own so they can be summed in SQL.
package records

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// TimestampLayout is used for timestamps stored as text.
const TimestampLayout = time.RFC3339Nano

type leaveTypeRecord struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	ShortCode             string          `json:"shortCode"`
	MaxPerRequest         decimal.Decimal `json:"maxPerRequest"`
	MinPerRequest         decimal.Decimal `json:"minPerRequest"`
	MaxInstancesPerYear   decimal.Decimal `json:"maxInstancesPerYear"`
	MaxInstancesPerMonth  decimal.Decimal `json:"maxInstancesPerMonth"`
	RequiresApproval      bool            `json:"requiresApproval"`
	RequiresDocs          bool            `json:"requiresDocs"`
	DocsRequiredAfterDays decimal.Decimal `json:"docsRequiredAfterDays"`
	ExcludeHolidays       bool            `json:"excludeHolidays"`
	IsActive              bool            `json:"isActive"`
}

type holidayRecord struct {
	Date generic.Date `json:"date"`
	Name string       `json:"name,omitempty"`
}

// PolicyColumns is the JSON-encoded part of a policy row.
type PolicyColumns struct {
	WeekOff    []byte
	Holidays   []byte
	LeaveTypes []byte
}

func EncodePolicy(p *leave.Policy) (PolicyColumns, error) {
	weekOff := make([]int, len(p.WeekOff))
	for i, w := range p.WeekOff {
		weekOff[i] = int(w)
	}
	holidays := make([]holidayRecord, len(p.Holidays))
	for i, h := range p.Holidays {
		holidays[i] = holidayRecord{Date: h.Date, Name: h.Name}
	}
	types := make([]leaveTypeRecord, len(p.LeaveTypes))
	for i, lt := range p.LeaveTypes {
		types[i] = leaveTypeRecord(lt)
	}

	var cols PolicyColumns
	var err error
	if cols.WeekOff, err = json.Marshal(weekOff); err != nil {
		return cols, fmt.Errorf("encode week off: %w", err)
	}
	if cols.Holidays, err = json.Marshal(holidays); err != nil {
		return cols, fmt.Errorf("encode holidays: %w", err)
	}
	if cols.LeaveTypes, err = json.Marshal(types); err != nil {
		return cols, fmt.Errorf("encode leave types: %w", err)
	}
	return cols, nil
}

// DecodePolicy fills the JSON-encoded fields of p.
func DecodePolicy(p *leave.Policy, cols PolicyColumns) error {
	var weekOff []int
	if err := json.Unmarshal(cols.WeekOff, &weekOff); err != nil {
		return fmt.Errorf("decode week off: %w", err)
	}
	var holidays []holidayRecord
	if err := json.Unmarshal(cols.Holidays, &holidays); err != nil {
		return fmt.Errorf("decode holidays: %w", err)
	}
	var types []leaveTypeRecord
	if err := json.Unmarshal(cols.LeaveTypes, &types); err != nil {
		return fmt.Errorf("decode leave types: %w", err)
	}

	p.WeekOff = make([]time.Weekday, len(weekOff))
	for i, w := range weekOff {
		p.WeekOff[i] = time.Weekday(w)
	}
	p.Holidays = make([]leave.Holiday, len(holidays))
	for i, h := range holidays {
		p.Holidays[i] = leave.Holiday{Date: h.Date, Name: h.Name}
	}
	p.LeaveTypes = make([]leave.LeaveType, len(types))
	for i, t := range types {
		p.LeaveTypes[i] = leave.LeaveType(t)
	}
	return nil
}

func EncodeDocuments(docs []leave.Document) ([]byte, error) {
	if docs == nil {
		docs = []leave.Document{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode documents: %w", err)
	}
	return data, nil
}

func DecodeDocuments(data []byte) ([]leave.Document, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var docs []leave.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs, nil
}
