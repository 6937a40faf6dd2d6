package clients

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

func TestUnwrapHTTPState(t *testing.T) {
	h := make(http.Header)
	h.Add("x-trace", "abc")

	expected := HTTPState{
		Status: http.StatusInternalServerError,
		Path:   "/v2/SL-1/status",
		Body: RespErrData{
			ResponseHeaders: h,
			Body:            "gateway exploded",
		},
	}

	err := errors.New("boom")
	errorBundle := NewHTTPError(err, expected.Path, err.Error(), expected.Status, expected.Body)

	actual, err := UnwrapHTTPState(fmt.Errorf("wrapped: %w", errorBundle))
	must.NoError(t, err)

	should.Equal(t, &expected, actual)
	should.False(t, IsClientError(errorBundle))
}

func TestUnwrapHTTPState_Error(t *testing.T) {
	err := errors.New("plain")
	errorData, actual := UnwrapHTTPState(err)
	should.Nil(t, errorData)
	should.EqualError(t, actual, fmt.Errorf("error unwrapping http state for error %w", err).Error())
}
