package validation_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/subaccounts/notes-server/internal/errors"
	"github.com/subaccounts/notes-server/internal/validation"
)

type sendRequest struct {
	To     string `json:"to" validate:"required,eth_addr"`
	Amount string `json:"amount" validate:"required,eth_amount"`
	Memo   string `json:"memo,omitempty" validate:"max=20"`
}

type noteRequest struct {
	Title string `json:"title" validate:"notblank,max=200"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(sendRequest{
		To:     "0x2222222222222222222222222222222222222222",
		Amount: "0.0001",
	})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       any
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing recipient",
			req:       sendRequest{Amount: "0.1"},
			wantField: "to",
			wantMsg:   "is required",
		},
		{
			name:      "malformed recipient",
			req:       sendRequest{To: "bob", Amount: "0.1"},
			wantField: "to",
			wantMsg:   "must be a 0x-prefixed 20 byte address",
		},
		{
			name:      "zero amount",
			req:       sendRequest{To: "0x2222222222222222222222222222222222222222", Amount: "0"},
			wantField: "amount",
		},
		{
			name:      "too many decimals",
			req:       sendRequest{To: "0x2222222222222222222222222222222222222222", Amount: "0.0000000000000000001"},
			wantField: "amount",
		},
		{
			name:      "memo too long",
			req:       sendRequest{To: "0x2222222222222222222222222222222222222222", Amount: "1", Memo: "this memo is far too long"},
			wantField: "memo",
			wantMsg:   "must not exceed 20 characters",
		},
		{
			name:      "blank title",
			req:       noteRequest{Title: "   "},
			wantField: "title",
			wantMsg:   "is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			var derr *domainerrors.Error
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, http.StatusBadRequest, derr.HTTPStatus())

			details, ok := derr.Details.(map[string]string)
			require.True(t, ok, "details should be keyed by field")
			require.Contains(t, details, tt.wantField)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, details[tt.wantField])
			}
		})
	}
}

func TestValidator_NonStructError(t *testing.T) {
	err := validation.New().Validate("not a struct")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domainerrors.ErrValidation)
}

func TestValidator_UnknownTagMessage(t *testing.T) {
	type body struct {
		Code string `json:"code" validate:"alpha"`
	}
	err := validation.New().Validate(body{Code: "12"})

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, map[string]string{"code": "is invalid"}, derr.Details)
}
