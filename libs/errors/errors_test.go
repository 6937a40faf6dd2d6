package errors_test

import (
	"errors"
	"testing"

	should "github.com/stretchr/testify/assert"

	errorutils "github.com/sellora/marketplace/libs/errors"
)

func TestErrorBundle(t *testing.T) {
	cause := errors.New("connection reset")
	err := errorutils.New(cause, "request failed", map[string]int{"status": 502})

	should.Equal(t, "request failed", err.Error())
	should.ErrorIs(t, err, cause)

	var eb *errorutils.ErrorBundle
	should.True(t, errors.As(err, &eb))
	should.Equal(t, `{"status":502}`, eb.DataToString())
}

func TestMultiError(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")

	me := &errorutils.MultiError{}
	should.Nil(t, me.ErrOrNil())

	me.Append(errA, nil, errB)

	should.Equal(t, 2, me.Count())
	should.Equal(t, "a; b", me.Error())
	should.ErrorIs(t, me.ErrOrNil(), errB)
}
