// Package rowmap translates records between their in-memory camelCase
// field names and the snake_case column names used by the storage backend.
package rowmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
)

// Row is one backend row keyed by column name.
type Row = map[string]any

var (
	// ErrUnknownField is returned when a row or record carries a field the
	// mapping does not know.
	ErrUnknownField = errors.New("unknown field")
	// ErrUnknownTable is returned for tables outside model.Tables.
	ErrUnknownTable = errors.New("unknown table")
)

type mapping struct {
	toColumn map[string]string
	toField  map[string]string
}

// fields lists camelCase field -> snake_case column for every table.
var fields = map[string]map[string]string{
	model.TableMembers: {
		"id":        "id",
		"name":      "name",
		"voicePart": "voice_part",
		"phone":     "phone",
		"email":     "email",
		"unit":      "unit",
		"joinedAt":  "joined_at",
		"active":    "active",
		"notes":     "notes",
	},
	model.TableEvents: {
		"id":         "id",
		"title":      "title",
		"date":       "date",
		"time":       "time",
		"location":   "location",
		"kind":       "kind",
		"notes":      "notes",
		"recurrence": "recurrence",
		"source":     "source",
	},
	model.TableSongs: {
		"id":         "id",
		"title":      "title",
		"composer":   "composer",
		"category":   "category",
		"season":     "season",
		"musicalKey": "musical_key",
		"sheetUrl":   "sheet_url",
		"lyrics":     "lyrics",
	},
	model.TableTransactions: {
		"id":          "id",
		"date":        "date",
		"kind":        "kind",
		"category":    "category",
		"amount":      "amount",
		"description": "description",
		"memberId":    "member_id",
	},
	model.TableAttendance: {
		"id":       "id",
		"date":     "date",
		"memberId": "member_id",
		"status":   "status",
		"note":     "note",
	},
}

// recordTypes ties each table to the record it stores.
var recordTypes = map[string]reflect.Type{
	model.TableMembers:      reflect.TypeOf(model.Member{}),
	model.TableEvents:       reflect.TypeOf(model.ScheduleEvent{}),
	model.TableSongs:        reflect.TypeOf(model.Song{}),
	model.TableTransactions: reflect.TypeOf(model.Transaction{}),
	model.TableAttendance:   reflect.TypeOf(model.AttendanceRecord{}),
}

var mappings = build()

func build() map[string]mapping {
	out := make(map[string]mapping, len(fields))
	for table, m := range fields {
		mp := mapping{
			toColumn: make(map[string]string, len(m)),
			toField:  make(map[string]string, len(m)),
		}
		for field, col := range m {
			if prev, dup := mp.toField[col]; dup {
				panic(fmt.Sprintf("rowmap: %s: column %q mapped from both %q and %q", table, col, prev, field))
			}
			mp.toColumn[field] = col
			mp.toField[col] = field
		}
		rt, ok := recordTypes[table]
		if !ok {
			panic(fmt.Sprintf("rowmap: no record type for table %q", table))
		}
		for _, name := range jsonNames(rt) {
			if _, ok := mp.toColumn[name]; !ok {
				panic(fmt.Sprintf("rowmap: %s: field %q has no column", table, name))
			}
		}
		if got := len(jsonNames(rt)); got != len(m) {
			panic(fmt.Sprintf("rowmap: %s: %d fields but %d columns", table, got, len(m)))
		}
		out[table] = mp
	}
	return out
}

func jsonNames(rt reflect.Type) []string {
	names := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		names = append(names, name)
	}
	return names
}

func lookup(table string) (mapping, error) {
	m, ok := mappings[table]
	if !ok {
		return mapping{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return m, nil
}

// Column returns the column name for a camelCase field.
func Column(table, field string) (string, error) {
	m, err := lookup(table)
	if err != nil {
		return "", err
	}
	col, ok := m.toColumn[field]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownField, table, field)
	}
	return col, nil
}

// Field returns the camelCase field for a column.
func Field(table, column string) (string, error) {
	m, err := lookup(table)
	if err != nil {
		return "", err
	}
	field, ok := m.toField[column]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownField, table, column)
	}
	return field, nil
}

// Columns returns the sorted column list of a table.
func Columns(table string) ([]string, error) {
	m, err := lookup(table)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(m.toField))
	for col := range m.toField {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

// Encode converts a record into a backend row.
func Encode(table string, record any) (Row, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", table, err)
	}
	var camel map[string]any
	if err := json.Unmarshal(data, &camel); err != nil {
		return nil, fmt.Errorf("encode %s: %w", table, err)
	}
	return FromFields(table, camel)
}

// FromFields renames camelCase keys to columns.
func FromFields(table string, camel map[string]any) (Row, error) {
	m, err := lookup(table)
	if err != nil {
		return nil, err
	}
	row := make(Row, len(camel))
	for k, v := range camel {
		col, ok := m.toColumn[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, table, k)
		}
		row[col] = v
	}
	return row, nil
}

// Fields renames row columns to camelCase keys. Null columns are dropped.
func Fields(table string, row Row) (map[string]any, error) {
	m, err := lookup(table)
	if err != nil {
		return nil, err
	}
	camel := make(map[string]any, len(row))
	for col, v := range row {
		field, ok := m.toField[col]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, table, col)
		}
		if v == nil {
			continue
		}
		camel[field] = v
	}
	return camel, nil
}

// Known returns the columns of row the table maps. Server-managed
// columns such as created_at are left out.
func Known(table string, row Row) (Row, error) {
	m, err := lookup(table)
	if err != nil {
		return nil, err
	}
	out := make(Row, len(row))
	for col, v := range row {
		if _, ok := m.toField[col]; ok {
			out[col] = v
		}
	}
	return out, nil
}

// DecodeKnown is Decode after dropping columns the table does not map.
func DecodeKnown(table string, row Row, out any) error {
	known, err := Known(table, row)
	if err != nil {
		return err
	}
	return Decode(table, known, out)
}

// Decode converts a backend row into the record pointed to by out.
// Columns absent from the row leave the zero value; unknown columns fail.
func Decode(table string, row Row, out any) error {
	camel, err := Fields(table, row)
	if err != nil {
		return err
	}
	data, err := json.Marshal(camel)
	if err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}
