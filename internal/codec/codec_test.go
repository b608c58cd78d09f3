package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subaccounts/notes-server/internal/domain"
	"github.com/subaccounts/notes-server/internal/errors"
)

func TestDecode_AbsentAndBlank(t *testing.T) {
	c := Notes(nil)

	assert.Empty(t, c.Decode("", false))
	assert.NotNil(t, c.Decode("", false))
	assert.Empty(t, c.Decode("   ", true))
	assert.Empty(t, c.Decode("null", true))
}

func TestDecode_FailsOpenOnMalformedJSON(t *testing.T) {
	c := Notes(nil)

	for _, raw := range []string{"{not json", `{"id":"x"}`, `[{"id": 5}]`, "[1,2"} {
		assert.NotPanics(t, func() {
			assert.Empty(t, c.Decode(raw, true), raw)
		})
	}
}

func TestDecode_FailsOpenOnSchemaMismatch(t *testing.T) {
	c := Transactions(nil)

	items := c.Decode(`[{"id":"tx-1","hash":"0x1","type":"send"},{"id":"tx-2","hash":"0x2","type":"swap"}]`, true)

	assert.Empty(t, items)
}

func TestDecodeStrict_ReportsMalformedData(t *testing.T) {
	c := Notes(nil)

	_, err := c.DecodeStrict("{not json", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMalformedData)

	_, err = c.DecodeStrict(`[{"title":"no id"}]`, true)
	assert.ErrorIs(t, err, errors.ErrMalformedData)
}

func TestDecodeStrict_ReportsMismatchIndex(t *testing.T) {
	c := Transactions(nil)

	_, err := c.DecodeStrict(`[{"id":"tx-1","hash":"0x1","type":"send"},{"id":"tx-2","hash":"0x2","type":"swap"}]`, true)

	var domainErr *errors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, errors.CodeMalformedData, domainErr.Code)
	assert.Equal(t, map[string]int{"index": 1}, domainErr.Details)
	assert.Nil(t, errors.ErrMalformedData.Details)
}

func TestRoundTrip_Notes(t *testing.T) {
	c := Notes(nil)
	notes := []domain.Note{
		{ID: "note-2", Title: "B", Content: "b", Owner: "0xa", Created: 2, Updated: 3, IsPublic: true, PublicPrice: "0.0001", TipCount: 4},
		{ID: "note-1", Title: "A", Content: "a", Owner: "anonymous", Author: "Me", Created: 1, Updated: 1},
	}

	raw, err := c.Encode(notes)
	require.NoError(t, err)

	decoded := c.Decode(raw, true)
	assert.Equal(t, notes, decoded)

	again, err := c.Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestRoundTrip_Transactions(t *testing.T) {
	c := Transactions(nil)
	records := []domain.TransactionRecord{
		{ID: "tx-1", Hash: "0xdead", Type: domain.TransactionSend, Details: "Sent 0.0001 ETH", Timestamp: 10, NoteID: "note-1", Amount: "0.0001"},
		{ID: "tx-0", Hash: "0xsig", Type: domain.TransactionSign, Details: "Signed message: hello...", Timestamp: 5},
	}

	raw, err := c.Encode(records)
	require.NoError(t, err)
	assert.Equal(t, records, c.Decode(raw, true))
}

func TestEncode_PreservesCallerOrder(t *testing.T) {
	c := NoteIDs(nil)

	raw, err := c.Encode([]string{"b", "a", "c"})
	require.NoError(t, err)
	assert.Equal(t, `["b","a","c"]`, raw)
}

func TestEncode_NilIsEmptyArray(t *testing.T) {
	raw, err := Notes(nil).Encode(nil)

	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestEncode_OmitsUnsetOptionalFields(t *testing.T) {
	raw, err := Notes(nil).Encode([]domain.Note{{ID: "note-1", Title: "T", Content: "C", Owner: "0xa"}})

	require.NoError(t, err)
	assert.NotContains(t, raw, "publicPrice")
	assert.NotContains(t, raw, "unlocked")
	assert.NotContains(t, raw, "author")
}
