package records

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUnknownColumn = errors.New("unknown column")
)

// Collection names a table the portal reads.
type Collection string

const (
	Profiles             Collection = "profiles"
	Patients             Collection = "patients"
	Appointments         Collection = "appointments"
	MriScans             Collection = "mri_scans"
	AiResults            Collection = "ai_results"
	PatientRegistrations Collection = "patient_registrations"
)

// filterable lists the columns a Query may filter or order on, per collection.
var filterable = map[Collection]map[string]bool{
	Patients: {
		"id": true, "profile_id": true, "assigned_doctor_id": true, "status": true,
		"needs_scan": true, "appointment_date": true, "created_at": true, "name": true,
	},
	Appointments: {
		"id": true, "patient_id": true, "doctor_id": true, "status": true,
		"appointment_date": true, "appointment_time": true, "created_at": true,
	},
	MriScans: {
		"id": true, "patient_id": true, "radiologist_id": true, "ai_processed": true,
		"scan_date": true, "created_at": true,
	},
}

type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
)

type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

type Order struct {
	Column     string
	Descending bool
}

// Query is an equality/range filtered, ordered, limited read of one
// collection. A zero Limit means no limit.
type Query struct {
	Filters []Filter
	OrderBy []Order
	Limit   int
	Offset  int
}

func NewQuery() Query { return Query{} }

func (q Query) Eq(column string, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Op: OpEq, Value: value})
	return q
}

func (q Query) Gte(column string, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Op: OpGte, Value: value})
	return q
}

func (q Query) Asc(column string) Query {
	q.OrderBy = append(append([]Order(nil), q.OrderBy...), Order{Column: column})
	return q
}

func (q Query) Desc(column string) Query {
	q.OrderBy = append(append([]Order(nil), q.OrderBy...), Order{Column: column, Descending: true})
	return q
}

func (q Query) Take(limit int) Query {
	q.Limit = limit
	return q
}

func (q Query) Skip(offset int) Query {
	q.Offset = offset
	return q
}

// Validate rejects columns the collection does not expose.
func (q Query) Validate(c Collection) error {
	cols := filterable[c]
	for _, f := range q.Filters {
		if !cols[f.Column] {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, c, f.Column)
		}
		if f.Op != OpEq && f.Op != OpGte {
			return fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	for _, o := range q.OrderBy {
		if !cols[o.Column] {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, c, o.Column)
		}
	}
	return nil
}

// where renders the filters as a SQL WHERE clause with $n placeholders
// starting at argIdx. Columns are qualified with prefix.
func (q Query) where(prefix string, argIdx int) (string, []interface{}) {
	if len(q.Filters) == 0 {
		return "", nil
	}
	clause := " WHERE"
	args := make([]interface{}, 0, len(q.Filters))
	for i, f := range q.Filters {
		if i > 0 {
			clause += " AND"
		}
		clause += fmt.Sprintf(" %s%s %s $%d", prefix, f.Column, f.Op, argIdx)
		args = append(args, f.Value)
		argIdx++
	}
	return clause, args
}

func (q Query) orderLimit(prefix string, argIdx int) (string, []interface{}) {
	var clause string
	for i, o := range q.OrderBy {
		if i == 0 {
			clause += " ORDER BY "
		} else {
			clause += ", "
		}
		clause += prefix + o.Column
		if o.Descending {
			clause += " DESC"
		} else {
			clause += " ASC"
		}
	}
	var args []interface{}
	if q.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, q.Limit)
		argIdx++
	}
	if q.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, q.Offset)
	}
	return clause, args
}
