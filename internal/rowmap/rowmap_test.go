package rowmap

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		table string
		in    any
		out   func() any
	}{
		{model.TableMembers, model.Member{ID: "m1", Name: "Anna", Voice: model.VoiceAlto, JoinedAt: "2024-09-01", Active: true, Unit: "Cecilia"}, func() any { return &model.Member{} }},
		{model.TableEvents, model.ScheduleEvent{ID: "e1", Title: "Rehearsal", Date: "2026-03-05", Time: "19:30", Kind: model.EventRehearsal, Recurrence: "FREQ=WEEKLY"}, func() any { return &model.ScheduleEvent{} }},
		{model.TableSongs, model.Song{ID: "s1", Title: "Ave verum", Composer: "Mozart", MusicalKey: "D", SheetURL: "https://example.org/ave.pdf"}, func() any { return &model.Song{} }},
		{model.TableTransactions, model.Transaction{ID: "t1", Date: "2026-01-10", Kind: model.Expense, Amount: decimal.RequireFromString("12.40"), MemberID: "m1"}, func() any { return &model.Transaction{} }},
		{model.TableAttendance, model.AttendanceRecord{ID: "a1", Date: "2026-01-04", MemberID: "m1", Status: model.Late}, func() any { return &model.AttendanceRecord{} }},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			row, err := Encode(tt.table, tt.in)
			require.NoError(t, err)

			out := tt.out()
			require.NoError(t, Decode(tt.table, row, out))

			// Compare by value, decimals by string.
			if tx, ok := out.(*model.Transaction); ok {
				want := tt.in.(model.Transaction)
				assert.True(t, want.Amount.Equal(tx.Amount))
				tx.Amount, want.Amount = decimal.Zero, decimal.Zero
				assert.Equal(t, want, *tx)
				return
			}
			assert.Equal(t, tt.in, deref(out))
		})
	}
}

func deref(v any) any {
	switch r := v.(type) {
	case *model.Member:
		return *r
	case *model.ScheduleEvent:
		return *r
	case *model.Song:
		return *r
	case *model.AttendanceRecord:
		return *r
	}
	return nil
}

func TestEncodeUsesSnakeCase(t *testing.T) {
	row, err := Encode(model.TableSongs, model.Song{ID: "s1", SheetURL: "u", MusicalKey: "G"})
	require.NoError(t, err)

	assert.Equal(t, "u", row["sheet_url"])
	assert.Equal(t, "G", row["musical_key"])
	assert.NotContains(t, row, "sheetUrl")
}

func TestDecodeRejectsUnknownColumn(t *testing.T) {
	var m model.Member
	err := Decode(model.TableMembers, Row{"id": "m1", "created_at": "2026-01-01"}, &m)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestDecodeKnownSkipsServerColumns(t *testing.T) {
	var m model.Member
	err := DecodeKnown(model.TableMembers, Row{"id": "m1", "name": "Anna", "created_at": "2026-01-01T08:00:00Z"}, &m)
	require.NoError(t, err)
	assert.Equal(t, model.Member{ID: "m1", Name: "Anna"}, m)

	known, err := Known(model.TableMembers, Row{"id": "m1", "created_at": "x"})
	require.NoError(t, err)
	assert.Equal(t, Row{"id": "m1"}, known)

	assert.ErrorIs(t, DecodeKnown("choirs", Row{}, &m), ErrUnknownTable)
}

func TestDecodeNumericAmount(t *testing.T) {
	var tx model.Transaction
	require.NoError(t, Decode(model.TableTransactions, Row{"id": "t1", "amount": 25.5, "member_id": nil}, &tx))
	assert.Equal(t, "25.5", tx.Amount.String())
	assert.Empty(t, tx.MemberID)
}

func TestUnknownTable(t *testing.T) {
	_, err := Encode("choirs", model.Member{})
	assert.ErrorIs(t, err, ErrUnknownTable)
	_, err = Columns("choirs")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestMappingIsBijective(t *testing.T) {
	for _, table := range model.Tables {
		m := mappings[table]
		require.Equal(t, len(m.toColumn), len(m.toField), table)
		for field, col := range m.toColumn {
			assert.Equal(t, field, m.toField[col], "%s.%s", table, field)
		}
	}
}

func TestColumn(t *testing.T) {
	col, err := Column(model.TableAttendance, "memberId")
	require.NoError(t, err)
	assert.Equal(t, "member_id", col)

	_, err = Column(model.TableAttendance, "member")
	assert.ErrorIs(t, err, ErrUnknownField)

	cols, err := Columns(model.TableAttendance)
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "id", "member_id", "note", "status"}, cols)
}

func TestFieldsAndFromFields(t *testing.T) {
	camel, err := Fields(model.TableTransactions, Row{"member_id": "m1", "amount": "3", "description": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"memberId": "m1", "amount": "3"}, camel)

	row, err := FromFields(model.TableTransactions, camel)
	require.NoError(t, err)
	assert.Equal(t, Row{"member_id": "m1", "amount": "3"}, row)

	_, err = FromFields(model.TableTransactions, map[string]any{"member": "m1"})
	assert.ErrorIs(t, err, ErrUnknownField)
}
